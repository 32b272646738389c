package pirate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/buspirate.go/pkg/protocol"
)

// Command describes a device command and how its arguments are parsed.
type Command struct {
	Name    string
	Aliases []string
	Help    string
	Parse   func(args []string) (protocol.Message, error)
}

// Commands lists all device commands.
var Commands = []*Command{
	{
		Name:  "mode",
		Help:  "[MODE]",
		Parse: parseMode,
	},
	{
		Name:    "i2c.scan",
		Aliases: []string{"scan"},
		Parse:   noArgs(protocol.I2cScan{}),
	},
	{
		Name: "i2c.write",
		Help: "ADDR BYTES...",
		Parse: func(args []string) (protocol.Message, error) {
			if len(args) < 1 {
				return nil, fmt.Errorf("ADDR required")
			}
			addr, err := parseUint8("ADDR", args[0])
			if err != nil {
				return nil, err
			}
			data, err := ParseBytes(args[1:])
			if err != nil {
				return nil, err
			}
			return protocol.NewI2cWrite(addr, data)
		},
	},
	{
		Name: "i2c.read",
		Help: "ADDR LEN",
		Parse: func(args []string) (protocol.Message, error) {
			v, err := parseUint8s(args, "ADDR", "LEN")
			if err != nil {
				return nil, err
			}
			return protocol.I2cRead{Addr: v[0], Len: v[1]}, nil
		},
	},
	{
		Name: "i2c.reg",
		Help: "ADDR REG",
		Parse: func(args []string) (protocol.Message, error) {
			v, err := parseUint8s(args, "ADDR", "REG")
			if err != nil {
				return nil, err
			}
			return protocol.I2cReadRegister{Addr: v[0], Reg: v[1]}, nil
		},
	},
	{
		Name: "i2c.setreg",
		Help: "ADDR REG VALUE",
		Parse: func(args []string) (protocol.Message, error) {
			v, err := parseUint8s(args, "ADDR", "REG", "VALUE")
			if err != nil {
				return nil, err
			}
			return protocol.I2cWriteRegister{Addr: v[0], Reg: v[1], Value: v[2]}, nil
		},
	},
	{
		Name:    "spi.xfer",
		Aliases: []string{"xfer"},
		Help:    "BYTES...",
		Parse: func(args []string) (protocol.Message, error) {
			data, err := ParseBytes(args)
			if err != nil {
				return nil, err
			}
			return protocol.NewSpiTransfer(data)
		},
	},
	{
		Name: "uart.write",
		Help: "BYTES...",
		Parse: func(args []string) (protocol.Message, error) {
			data, err := ParseBytes(args)
			if err != nil {
				return nil, err
			}
			return protocol.NewUartWrite(data)
		},
	},
	{
		Name: "uart.read",
		Help: "[LEN]",
		Parse: func(args []string) (protocol.Message, error) {
			n := uint64(protocol.MaxReplyData)
			if len(args) > 0 {
				var err error
				if n, err = strconv.ParseUint(args[0], 0, 16); err != nil {
					return nil, fmt.Errorf("invalid LEN: %w", err)
				}
			}
			return protocol.UartRead{Len: uint16(n)}, nil
		},
	},
	{
		Name: "uart.baud",
		Help: "BAUDRATE",
		Parse: func(args []string) (protocol.Message, error) {
			if len(args) < 1 {
				return nil, fmt.Errorf("BAUDRATE required")
			}
			baud, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid BAUDRATE: %w", err)
			}
			return protocol.UartConfig{Baudrate: uint32(baud)}, nil
		},
	},
	{
		Name: "config.set",
		Help: "KEY VALUE",
		Parse: func(args []string) (protocol.Message, error) {
			if len(args) < 2 {
				return nil, fmt.Errorf("KEY and VALUE required")
			}
			return protocol.NewSetConfig(args[0], strings.Join(args[1:], " "))
		},
	},
	{
		Name: "config.get",
		Help: "KEY",
		Parse: func(args []string) (protocol.Message, error) {
			if len(args) < 1 {
				return nil, fmt.Errorf("KEY required")
			}
			return protocol.NewGetConfig(args[0])
		},
	},
	{
		Name:    "file.ls",
		Aliases: []string{"ls"},
		Help:    "[PATH]",
		Parse: func(args []string) (protocol.Message, error) {
			dir := "/"
			if len(args) > 0 {
				dir = args[0]
			}
			return protocol.NewFileList(dir)
		},
	},
	{
		Name:    "file.cat",
		Aliases: []string{"cat"},
		Help:    "PATH",
		Parse: func(args []string) (protocol.Message, error) {
			if len(args) < 1 {
				return nil, fmt.Errorf("PATH required")
			}
			return protocol.NewFileRead(args[0])
		},
	},
	{
		Name: "file.put",
		Help: "PATH BYTES...",
		Parse: func(args []string) (protocol.Message, error) {
			if len(args) < 1 {
				return nil, fmt.Errorf("PATH required")
			}
			data, err := ParseBytes(args[1:])
			if err != nil {
				return nil, err
			}
			return protocol.NewFileWrite(args[0], data)
		},
	},
}

// Find finds a command by name or alias.
func Find(name string) *Command {
	for _, cmd := range Commands {
		if cmd.Name == name {
			return cmd
		}
		for _, alias := range cmd.Aliases {
			if alias == name {
				return cmd
			}
		}
	}
	return nil
}

// Parse parses a command line into a command message.
func Parse(args []string) (protocol.Message, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("command required")
	}
	cmd := Find(args[0])
	if cmd == nil {
		return nil, fmt.Errorf("unknown command %q", args[0])
	}
	return cmd.Parse(args[1:])
}

// ParseBytes parses arguments into bytes. An argument is either a byte
// (0x1f, 31) or a text with Go escapes prefixed by s: like s:AT\r\n.
func ParseBytes(args []string) ([]byte, error) {
	var data []byte
	for _, arg := range args {
		if strings.HasPrefix(arg, "s:") {
			text, err := strconv.Unquote(`"` + strings.ReplaceAll(arg[2:], `"`, `\"`) + `"`)
			if err != nil {
				return nil, fmt.Errorf("invalid text %q: %w", arg, err)
			}
			data = append(data, text...)
			continue
		}
		v, err := parseUint8("byte", arg)
		if err != nil {
			return nil, err
		}
		data = append(data, v)
	}
	return data, nil
}

func parseMode(args []string) (protocol.Message, error) {
	if len(args) == 0 {
		return protocol.GetMode{}, nil
	}
	mode, err := protocol.ParseMode(args[0])
	if err != nil {
		return nil, err
	}
	return protocol.SetMode{Mode: mode}, nil
}

func noArgs(m protocol.Message) func([]string) (protocol.Message, error) {
	return func([]string) (protocol.Message, error) { return m, nil }
}

func parseUint8(name, s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return uint8(v), nil
}

func parseUint8s(args []string, names ...string) ([]uint8, error) {
	if len(args) < len(names) {
		return nil, fmt.Errorf("%s required", strings.Join(names, " "))
	}
	v := make([]uint8, len(names))
	for n, name := range names {
		var err error
		if v[n], err = parseUint8(name, args[n]); err != nil {
			return nil, err
		}
	}
	return v, nil
}
