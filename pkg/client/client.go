// Package client provides host side operations on a bus pirate device.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/buspirate.go/pkg/protocol"
	"github.com/robotalks/buspirate.go/pkg/transport"
)

var (
	// ErrCommunication indicates the reply frame can't be decoded.
	ErrCommunication = errors.New("communication error")
	// ErrUnexpectedReply indicates the reply doesn't match the command.
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// DefaultTimeout is the default time waiting for a reply.
const DefaultTimeout = time.Second

// Client sends commands and waits for replies over a Transport.
//
// Frames carry no correlation id, so only one command is in flight at a
// time and any frame received before sending is discarded as stale.
type Client struct {
	Transport transport.Transport
	Timeout   time.Duration

	lock sync.Mutex
}

// New creates a Client.
func New(t transport.Transport) *Client {
	return &Client{Transport: t, Timeout: DefaultTimeout}
}

// Do sends a command and returns the Response from the device.
// An ErrorResponse from the device is returned as the error.
func (c *Client) Do(ctx context.Context, cmd protocol.Message) (protocol.Response, error) {
	if !protocol.IsCommand(cmd) {
		return protocol.Response{}, fmt.Errorf("%v is not a command", tagOf(cmd))
	}
	frame, err := protocol.EncodeFrame(cmd)
	if err != nil {
		return protocol.Response{}, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	c.drain()
	if err := c.Transport.Send(frame); err != nil {
		return protocol.Response{}, err
	}
	if timeout := c.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	replyFrame, err := transport.ReceiveContext(ctx, c.Transport)
	if err != nil {
		return protocol.Response{}, err
	}
	reply, err := protocol.DecodeFrame(replyFrame)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("%w: %w", ErrCommunication, err)
	}
	switch reply := reply.(type) {
	case protocol.Response:
		return reply, nil
	case protocol.ErrorResponse:
		return protocol.Response{}, reply
	default:
		return protocol.Response{}, fmt.Errorf("%w: %v", ErrUnexpectedReply, reply.Tag())
	}
}

func (c *Client) drain() {
	for {
		frame, err := c.Transport.Receive()
		if err != nil && !errors.Is(err, transport.ErrBufferFull) {
			return
		}
		if frame == nil && err == nil {
			return
		}
		glog.V(2).Infof("stale frame of %d bytes discarded", len(frame))
	}
}

func tagOf(m protocol.Message) string {
	if m == nil {
		return "nil"
	}
	return m.Tag().String()
}

func unexpected(expected string, r protocol.Reply) error {
	return fmt.Errorf("%w: %T, want %s", ErrUnexpectedReply, r, expected)
}
