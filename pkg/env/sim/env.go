// Package sim configures an emulated device and the links serving it.
package sim

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robotalks/buspirate.go/pkg/device"
	"github.com/robotalks/buspirate.go/pkg/env"
	fx "github.com/robotalks/buspirate.go/pkg/framework"
	"github.com/robotalks/buspirate.go/pkg/transport"
	"github.com/robotalks/buspirate.go/pkg/transport/mqtt"
	"github.com/robotalks/buspirate.go/pkg/transport/websocket"
)

// Config provides options to serve an emulated device.
type Config struct {
	// ID identifies the device on MQTT.
	ID string
	// MQTTBrokerURL specifies the MQTT broker to bridge frames over.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// Listen is the HTTP address serving WebSocketPath and MetricsPath.
	Listen string
	// Profile is a YAML file describing the emulated device.
	Profile string
}

// HTTP paths.
const (
	WebSocketPath = "/pirate"
	MetricsPath   = "/metrics"
)

var defaultConfig = Config{
	Listen: ":8866",
}

func init() {
	if val := os.Getenv("PIRATE_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("PIRATE_LISTEN"); val != "" {
		defaultConfig.Listen = val
	}
	if val := os.Getenv("PIRATE_ID"); val != "" {
		defaultConfig.ID = val
	} else {
		defaultConfig.ID = env.MachineID()
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Device ID")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.Listen, "listen", defaultConfig.Listen, "HTTP listen address, empty to disable")
	flag.StringVar(&defaultConfig.Profile, "profile", defaultConfig.Profile, "Device profile (YAML)")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is the env of an emulated device.
type Env struct {
	Config   *Config
	Emulator *device.Emulator
	Registry *prometheus.Registry
	Metrics  *device.Metrics
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if c.Listen == "" && c.MQTTBrokerURL == "" {
		return nil, fmt.Errorf("at least one of listen address and MQTT broker is required")
	}
	profile := device.DefaultProfile()
	if c.Profile != "" {
		p, err := device.LoadProfileFile(c.Profile)
		if err != nil {
			return nil, err
		}
		profile = p
	}
	e := &Env{Config: c, Emulator: device.NewEmulator(), Registry: device.NewRegistry()}
	if err := profile.Apply(e.Emulator); err != nil {
		return nil, fmt.Errorf("apply profile: %w", err)
	}
	e.Metrics = device.NewMetrics(e.Registry)
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

// NewServer creates a device.Server for a link.
func (e *Env) NewServer(link transport.Transport) *device.Server {
	s := device.NewServer(link, e.Emulator)
	s.Metrics = e.Metrics
	return s
}

// Handler serves websocket links and metrics.
func (e *Env) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, device.MetricsHandler(e.Registry))
	mux.Handle(WebSocketPath, websocket.Handler(func(conn *websocket.Conn) {
		ctx := conn.Request().Context()
		err := fx.NewRunnerWith(ctx).Go(
			fx.NamedRun("ws", conn),
			fx.NamedRun("server", e.NewServer(conn)),
		).Wait()
		glog.V(1).Infof("websocket closed: %v", err)
	}))
	return mux
}

// Runnables returns what to run for the configured links.
func (e *Env) Runnables() ([]fx.Runnable, error) {
	var runners []fx.Runnable
	if addr := e.Config.Listen; addr != "" {
		runners = append(runners, fx.NamedRun("http", fx.RunFunc(func(ctx context.Context) error {
			srv := &http.Server{Addr: addr, Handler: e.Handler()}
			glog.Infof("serving ws://%s%s", addr, WebSocketPath)
			return fx.RunWithContextCancel(ctx, func() { srv.Close() }, srv.ListenAndServe)
		})))
	}
	if brokerURL := e.Config.MQTTBrokerURL; brokerURL != "" {
		q, err := mqtt.NewQueueFromURL(brokerURL)
		if err != nil {
			return nil, err
		}
		if err := q.Connect(); err != nil {
			return nil, fmt.Errorf("connect MQTT broker: %w", err)
		}
		link := mqtt.NewLink(q).ForDevice(e.Config.ID)
		glog.Infof("serving mqtt %s%s", q.TopicPrefix, link.SubTopic)
		runners = append(runners,
			fx.NamedRun("mqtt", link),
			fx.NamedRun("mqtt-server", e.NewServer(link)))
	}
	return runners, nil
}
