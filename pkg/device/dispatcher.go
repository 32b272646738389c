// Package device provides the device side of the link: a frame server, the
// dispatcher boundary and an emulated device.
package device

import (
	"context"

	"github.com/robotalks/buspirate.go/pkg/protocol"
)

// Dispatcher executes a command and returns a Response or an ErrorResponse.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd protocol.Message) protocol.Message
}

// DispatchFunc is func type of Dispatcher.
type DispatchFunc func(context.Context, protocol.Message) protocol.Message

// Dispatch implements Dispatcher.
func (f DispatchFunc) Dispatch(ctx context.Context, cmd protocol.Message) protocol.Message {
	return f(ctx, cmd)
}
