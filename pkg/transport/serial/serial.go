// Package serial provides the frame transport over a serial port.
package serial

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"go.bug.st/serial"

	fx "github.com/robotalks/buspirate.go/pkg/framework"
	"github.com/robotalks/buspirate.go/pkg/transport"
)

// DefaultBaudrate is used when none is specified.
const DefaultBaudrate = 115200

// Port is a transport.Stream over an opened serial port.
type Port struct {
	*transport.Stream
	Name string

	port serial.Port
}

// Ports lists the serial ports available on the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Open opens a serial port in 8N1 mode.
func Open(name string, baudrate int) (*Port, error) {
	if baudrate <= 0 {
		baudrate = DefaultBaudrate
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baudrate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, transport.IOError(err))
	}
	glog.V(1).Infof("opened %s at %d baud", name, baudrate)
	return &Port{Stream: transport.NewStream(port), Name: name, port: port}, nil
}

// Run implements Runnable. The port is closed when Run returns.
func (p *Port) Run(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, p.port, func() error {
		return p.Stream.Run(ctx)
	})
}

// Close closes the port.
func (p *Port) Close() error {
	return p.port.Close()
}
