package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/buspirate.go/pkg/cli/sh"
	"github.com/robotalks/buspirate.go/pkg/protocol"
	"github.com/robotalks/buspirate.go/pkg/transport/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/pirate/"
)

func init() {
	if val := os.Getenv("PIRATE_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err := q.Connect(); err != nil {
		log.Fatalln(err)
	}

	handler := mqtt.Handler(func(topic string, payload []byte) {
		dir := "<-"
		if strings.HasSuffix(topic, "/"+mqtt.TopicRx) {
			dir = "->"
		}
		msg, err := protocol.DecodeFrame(payload)
		if err != nil {
			log.Printf("%s %s bad frame % x: %v", topic, dir, payload, err)
			return
		}
		log.Printf("%s %s %s", topic, dir, sh.FormatMessage(msg))
	})
	q.Sub(mqtt.DeviceTopic("+", mqtt.TopicRx), handler)
	q.Sub(mqtt.DeviceTopic("+", mqtt.TopicTx), handler)
	<-(chan struct{})(nil)
}
