// Package sh provides the interactive shell talking to a device.
package sh

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/buspirate.go/pkg/client"
	env "github.com/robotalks/buspirate.go/pkg/env/host"
	"github.com/robotalks/buspirate.go/pkg/protocol"
	"github.com/robotalks/buspirate.go/pkg/transport/serial"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *Conn
}

// Conn is a running link with a client.
type Conn struct {
	Ctx    context.Context
	Cancel func()
	URL    string
	Link   env.Link
	Client *client.Client
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&PortsCmd,
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// DoCommand sends a command and prints the reply.
func DoCommand(c *ishell.Context, cmd protocol.Message) error {
	s := ShellFrom(c)
	if s.Conn == nil {
		err := fmt.Errorf("not connected")
		c.Err(err)
		return err
	}
	var reply protocol.Message
	resp, err := s.Conn.Client.Do(s.Conn.Ctx, cmd)
	var devErr protocol.ErrorResponse
	switch {
	case err == nil:
		reply = resp
	case errors.As(err, &devErr):
		reply = devErr
	default:
		c.Err(err)
		return err
	}
	out, err := s.Format(reply)
	if err != nil {
		c.Err(err)
		return err
	}
	c.Println(out)
	return nil
}

// Format formats a message for display, in JSON if OutputJSON is set.
func (s *Shell) Format(msg protocol.Message) (string, error) {
	if s.OutputJSON {
		out, err := json.Marshal(NewMessageView(msg))
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	return FormatMessage(msg), nil
}

// MessageView is the JSON form of a decoded message.
type MessageView struct {
	Type  string   `json:"type"`
	Reply string   `json:"reply,omitempty"`
	Mode  string   `json:"mode,omitempty"`
	Data  string   `json:"data,omitempty"`
	Addrs []string `json:"addrs,omitempty"`
	Value string   `json:"value,omitempty"`
	Names []string `json:"names,omitempty"`
	Error string   `json:"error,omitempty"`
}

// NewMessageView creates the MessageView of a reply or command.
func NewMessageView(msg protocol.Message) *MessageView {
	v := &MessageView{Type: msg.Tag().String()}
	switch m := msg.(type) {
	case protocol.ErrorResponse:
		v.Error = m.Code.String()
	case protocol.Response:
		if m.Reply == nil {
			break
		}
		v.Reply = m.Reply.Tag().String()
		switch r := m.Reply.(type) {
		case protocol.ReplyData:
			v.Data = hex.EncodeToString(r.Data())
		case protocol.ReplyI2cDevices:
			for _, addr := range r.Addrs() {
				v.Addrs = append(v.Addrs, fmt.Sprintf("0x%02x", addr))
			}
		case protocol.ReplyCurrentMode:
			v.Mode = r.Mode.String()
		case protocol.ReplyConfigValue:
			v.Value = r.Value()
		case protocol.ReplyFileList:
			v.Names = r.Names()
		}
	case protocol.SetMode:
		v.Mode = m.Mode.String()
	}
	return v
}

// FormatMessage prints a message into friendly string for display.
func FormatMessage(msg protocol.Message) string {
	v := NewMessageView(msg)
	switch {
	case v.Error != "":
		return "ERROR " + v.Error
	case v.Reply == "Success":
		return "OK"
	case v.Reply == "Data":
		if v.Data == "" {
			return "(empty)"
		}
		return v.Data
	case v.Reply == "I2cDevices":
		if len(v.Addrs) == 0 {
			return "No devices found"
		}
		return strings.Join(v.Addrs, " ")
	case v.Reply == "CurrentMode":
		return v.Mode
	case v.Reply == "ConfigValue":
		return v.Value
	case v.Reply == "FileList":
		return strings.Join(v.Names, "\n")
	case v.Mode != "":
		return v.Type + " " + v.Mode
	}
	return fmt.Sprintf("%s %+v", v.Type, msg)
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect opens the device at url, replacing the current connection.
func (s *Shell) Connect(url string) error {
	link, err := s.Config.OpenURL(url)
	if err != nil {
		return err
	}
	conn := &Conn{URL: url, Link: link, Client: s.Config.NewClient(link)}
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	s.Disconnect()
	s.Conn = conn
	go func() {
		if err := link.Run(conn.Ctx); err != nil && conn.Ctx.Err() == nil {
			s.Shell.Printf("%s: %v\n", url, err)
		}
		link.Close()
	}()
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", url))
	return nil
}

// Disconnect disconnects current device.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Cancel()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.URL != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.URL)
		}
		if err := s.Connect(s.Config.URL); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.URL, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ports, err := serial.Ports()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if len(ports) == 0 {
					// in case ports is nil, make it empty slice.
					ports = []string{}
				}
				out, err := json.Marshal(ports)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(ports) == 0 {
				c.Println("No serial ports found")
				return
			}
			for _, port := range ports {
				c.Println(port)
			}
		},
	}

	// ConnectCmd connects a device.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[URL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			url := s.Config.URL
			if len(c.Args) > 0 {
				url = c.Args[0]
			}
			if url == "" {
				ports, err := serial.Ports()
				if err != nil {
					c.Err(err)
					return
				}
				switch {
				case len(ports) == 0:
					c.Err(fmt.Errorf("no serial ports found"))
					return
				case len(ports) > 1 && !s.Interactive:
					c.Err(fmt.Errorf("more than 1 serial ports found in non-interactive mode"))
					return
				case len(ports) > 1:
					url = ports[s.Shell.MultiChoice(ports, "Which one to connect?")]
				default:
					url = ports[0]
				}
			}
			if err := s.Connect(url); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current device.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
