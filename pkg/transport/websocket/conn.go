// Package websocket provides the frame transport over websocket, one frame
// per binary message.
package websocket

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/buspirate.go/pkg/framework"
	"github.com/robotalks/buspirate.go/pkg/protocol"
	"github.com/robotalks/buspirate.go/pkg/transport"
)

// Conn implements transport.Transport over a websocket connection.
type Conn struct {
	ws        *websocket.Conn
	inbox     *transport.Inbox
	connected bool
	lock      sync.RWMutex
}

// New wraps websocket.Conn.
func New(ws *websocket.Conn) *Conn {
	ws.PayloadType = websocket.BinaryFrame
	return &Conn{ws: ws, inbox: transport.NewInbox(transport.DefaultInboxSize), connected: true}
}

// Dial connects to a websocket server.
func Dial(url string) (*Conn, error) {
	ws, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, transport.IOError(err)
	}
	return New(ws), nil
}

// Handler creates a http.Handler accepting connections.
// fn is called for each accepted connection and the connection is closed
// when fn returns.
func Handler(fn func(*Conn)) http.Handler {
	return websocket.Handler(func(ws *websocket.Conn) {
		glog.V(1).Infof("websocket accepted from %s", ws.Request().RemoteAddr)
		fn(New(ws))
	})
}

// Request returns the HTTP request which opened a server side connection.
func (c *Conn) Request() *http.Request {
	return c.ws.Request()
}

// IsConnected implements transport.Transport.
func (c *Conn) IsConnected() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.connected
}

// Send implements transport.Transport.
func (c *Conn) Send(frame []byte) error {
	if len(frame) > protocol.MaxFrameSize {
		return transport.ErrBufferFull
	}
	if !c.IsConnected() {
		return transport.ErrDisconnected
	}
	return transport.IOError(websocket.Message.Send(c.ws, frame))
}

// Receive implements transport.Transport.
func (c *Conn) Receive() ([]byte, error) {
	frame, err := c.inbox.Pop()
	if frame != nil || err != nil {
		return frame, err
	}
	if !c.IsConnected() {
		return nil, transport.ErrDisconnected
	}
	return nil, nil
}

// Ready implements transport.Waiter.
func (c *Conn) Ready() <-chan struct{} {
	return c.inbox.Ready()
}

// Run receives messages until ctx is done or the connection is closed.
func (c *Conn) Run(ctx context.Context) error {
	defer c.disconnect()
	return fx.RunWithContextCloser(ctx, c.ws, func() error {
		for {
			var frame []byte
			if err := websocket.Message.Receive(c.ws, &frame); err != nil {
				if errors.Is(err, io.EOF) {
					return transport.ErrDisconnected
				}
				return transport.IOError(err)
			}
			if len(frame) > protocol.MaxFrameSize {
				glog.Warningf("websocket message of %d bytes dropped", len(frame))
				continue
			}
			if !c.inbox.Push(frame) {
				glog.Warningf("rx queue full, frame of %d bytes dropped", len(frame))
			}
		}
	})
}

// Close closes the connection.
func (c *Conn) Close() error {
	c.disconnect()
	return c.ws.Close()
}

func (c *Conn) disconnect() {
	c.lock.Lock()
	c.connected = false
	c.lock.Unlock()
	c.inbox.Clear()
}
