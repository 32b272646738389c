// Package host configures the host side: which device to talk to and how.
package host

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robotalks/buspirate.go/pkg/client"
	fx "github.com/robotalks/buspirate.go/pkg/framework"
	"github.com/robotalks/buspirate.go/pkg/transport"
	"github.com/robotalks/buspirate.go/pkg/transport/mqtt"
	"github.com/robotalks/buspirate.go/pkg/transport/serial"
	"github.com/robotalks/buspirate.go/pkg/transport/websocket"
)

// Config provides common options to connect a device.
type Config struct {
	// URL specifies the device, one of
	//   serial:///dev/ttyACM0?baud=115200 (or just /dev/ttyACM0)
	//   ws://host:port/pirate
	//   mqtt://host:port/topic-prefix/?id=device-id
	URL string
	// Baudrate is used for serial ports without a baud query.
	Baudrate int
	// DeviceID selects the device on MQTT without an id query.
	DeviceID string
	// Timeout waits for a reply.
	Timeout time.Duration
	// FrameTimeout drops a partially received frame on serial ports.
	FrameTimeout time.Duration
}

var defaultConfig = Config{
	Baudrate:     serial.DefaultBaudrate,
	Timeout:      client.DefaultTimeout,
	FrameTimeout: transport.DefaultFrameTimeout,
}

func init() {
	if val := os.Getenv("PIRATE_PORT"); val != "" {
		defaultConfig.URL = val
	}
	if val := os.Getenv("PIRATE_URL"); val != "" {
		defaultConfig.URL = val
	}
	if val := os.Getenv("PIRATE_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.Baudrate = baud
		}
	}
	if val := os.Getenv("PIRATE_ID"); val != "" {
		defaultConfig.DeviceID = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.URL, "url", defaultConfig.URL, "Device URL: serial port, ws:// or mqtt://.")
	flag.IntVar(&defaultConfig.Baudrate, "baud", defaultConfig.Baudrate, "Serial port baudrate.")
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID on MQTT.")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Reply timeout.")
	flag.DurationVar(&defaultConfig.FrameTimeout, "frame-timeout", defaultConfig.FrameTimeout, "Partial frame timeout on serial ports.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Link is an opened transport which must be run to exchange frames.
type Link interface {
	transport.Transport
	fx.Runnable
	io.Closer
}

// Open opens the link to the device.
func (c *Config) Open() (Link, error) {
	return c.OpenURL(c.URL)
}

// OpenURL opens the link specified by rawURL, other options come from c.
func (c *Config) OpenURL(rawURL string) (Link, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("device URL required")
	}
	if !strings.Contains(rawURL, "://") {
		return c.openSerial(rawURL, c.Baudrate)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid device URL: %w", err)
	}
	switch u.Scheme {
	case "serial":
		baud := c.Baudrate
		if val := u.Query().Get("baud"); val != "" {
			if baud, err = strconv.Atoi(val); err != nil {
				return nil, fmt.Errorf("invalid baud %q: %w", val, err)
			}
		}
		return c.openSerial(u.Path, baud)
	case "ws", "wss":
		conn, err := websocket.Dial(rawURL)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case "mqtt", "mqtts", "tcp", "ssl":
		id := c.DeviceID
		if val := u.Query().Get("id"); val != "" {
			id = val
		}
		if id == "" {
			return nil, fmt.Errorf("device ID required for %s", u.Scheme)
		}
		q, err := mqtt.NewQueueFromURL(rawURL)
		if err != nil {
			return nil, err
		}
		if err := q.Connect(); err != nil {
			return nil, err
		}
		return &mqttLink{Link: mqtt.NewLink(q).ForHost(id)}, nil
	default:
		return nil, fmt.Errorf("unknown device URL scheme: %q", u.Scheme)
	}
}

// NewClient creates a client over the link.
func (c *Config) NewClient(link transport.Transport) *client.Client {
	cli := client.New(link)
	if c.Timeout > 0 {
		cli.Timeout = c.Timeout
	}
	return cli
}

func (c *Config) openSerial(name string, baud int) (Link, error) {
	port, err := serial.Open(name, baud)
	if err != nil {
		return nil, err
	}
	port.Timeout = c.FrameTimeout
	return port, nil
}

type mqttLink struct {
	*mqtt.Link
}

func (l *mqttLink) Close() error {
	return l.Queue.Close()
}
