package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	fx "github.com/robotalks/buspirate.go/pkg/framework"
	env "github.com/robotalks/buspirate.go/pkg/env/sim"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()

	env := env.NewConfig().MustNewEnv()
	runners, err := env.Runnables()
	if err != nil {
		log.Fatalln(err)
	}
	if err := fx.NewRunner().HandleSignals().Go(runners...).Wait(); err != nil {
		log.Fatalln(err)
	}
}
