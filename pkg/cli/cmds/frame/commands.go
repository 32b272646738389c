// Package frame provides offline frame tools in the shell.
package frame

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/buspirate.go/pkg/cli/cmds/pirate"
	"github.com/robotalks/buspirate.go/pkg/cli/sh"
	"github.com/robotalks/buspirate.go/pkg/protocol"
)

// Encode encodes a command line into a frame.
func Encode(args []string) ([]byte, error) {
	msg, err := pirate.Parse(args)
	if err != nil {
		return nil, err
	}
	return protocol.EncodeFrame(msg)
}

// ParseHex parses hex arguments, spaces and colons are ignored.
func ParseHex(args []string) ([]byte, error) {
	s := strings.NewReplacer(" ", "", ":", "", "0x", "").Replace(strings.Join(args, ""))
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

var (
	// EncodeCmd prints the frame of a command.
	EncodeCmd = ishell.Cmd{
		Name:    "frame.encode",
		Aliases: []string{"fe"},
		Help:    "COMMAND ARGS...",
		Func: func(c *ishell.Context) {
			frame, err := Encode(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(hex.EncodeToString(frame))
		},
	}

	// DecodeCmd decodes a frame.
	DecodeCmd = ishell.Cmd{
		Name:    "frame.decode",
		Aliases: []string{"fd"},
		Help:    "HEX",
		Func: func(c *ishell.Context) {
			frame, err := ParseHex(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			msg, err := protocol.DecodeFrame(frame)
			if err != nil {
				c.Err(err)
				return
			}
			out, err := sh.ShellFrom(c).Format(msg)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(out)
		},
	}

	// CrcCmd prints the checksum of bytes.
	CrcCmd = ishell.Cmd{
		Name: "crc",
		Help: "HEX",
		Func: func(c *ishell.Context) {
			data, err := ParseHex(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("0x%04x\n", protocol.Checksum(data))
		},
	}
)

func init() {
	sh.AddCmds(&EncodeCmd, &DecodeCmd, &CrcCmd)
}
