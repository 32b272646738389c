// Package pirate exposes device commands in the shell.
package pirate

import (
	"github.com/abiosoft/ishell"

	"github.com/robotalks/buspirate.go/pkg/cli/sh"
)

func shellCmd(cmd *Command) *ishell.Cmd {
	return &ishell.Cmd{
		Name:    cmd.Name,
		Aliases: cmd.Aliases,
		Help:    cmd.Help,
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			msg, err := cmd.Parse(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, msg)
		}),
	}
}

func init() {
	for _, cmd := range Commands {
		sh.AddCmds(shellCmd(cmd))
	}
}
