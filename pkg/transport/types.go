package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBufferFull indicates a frame doesn't fit or a queue overflowed.
	ErrBufferFull = errors.New("transport buffer full")
	// ErrDisconnected indicates the transport is not connected.
	ErrDisconnected = errors.New("transport disconnected")
	// ErrIO wraps failures of the underlying channel.
	ErrIO = errors.New("transport i/o error")
	// ErrTimeout indicates no frame arrived in time.
	ErrTimeout = errors.New("transport timeout")
)

// Transport sends and receives complete frames.
type Transport interface {
	// Send transmits one complete frame.
	Send(frame []byte) error
	// Receive returns the next complete frame, or nil if none is available.
	Receive() ([]byte, error)
	// IsConnected indicates the peer is reachable.
	IsConnected() bool
}

// Waiter is implemented by transports which can signal incoming frames.
type Waiter interface {
	// Ready returns a chan signaled when a frame may be available.
	Ready() <-chan struct{}
}

// StateNotifier is called when the connection state changed.
type StateNotifier interface {
	StateChanged(ctx context.Context, connected bool)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(context.Context, bool)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, connected bool) {
	f(ctx, connected)
}

// PollInterval is used by ReceiveContext for transports not implementing Waiter.
var PollInterval = 5 * time.Millisecond

// ReceiveContext blocks until a frame is received, Receive fails or ctx is done.
// A ctx deadline is reported as ErrTimeout.
func ReceiveContext(ctx context.Context, t Transport) ([]byte, error) {
	var ready <-chan struct{}
	if w, ok := t.(Waiter); ok {
		ready = w.Ready()
	}
	for {
		frame, err := t.Receive()
		if err != nil || frame != nil {
			return frame, err
		}
		var poll <-chan time.Time
		if ready == nil {
			poll = time.After(PollInterval)
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
			}
			return nil, ctx.Err()
		case <-ready:
		case <-poll:
		}
	}
}

// IOError wraps an error of the underlying channel as ErrIO.
func IOError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}
