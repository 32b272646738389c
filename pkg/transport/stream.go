package transport

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/buspirate.go/pkg/protocol"
)

// DefaultFrameTimeout is the default time a partial frame may wait for the
// next byte before it's dropped.
const DefaultFrameTimeout = 100 * time.Millisecond

// Stream implements Transport over a byte stream.
type Stream struct {
	ReadWriter io.ReadWriter
	Notifier   StateNotifier
	Timeout    time.Duration

	inbox     *Inbox
	scanner   Scanner
	connected bool
	stateLock sync.RWMutex
	sendLock  sync.Mutex
	timer     *time.Timer
}

// NewStream creates a Stream.
func NewStream(rw io.ReadWriter) *Stream {
	return &Stream{
		ReadWriter: rw,
		Timeout:    DefaultFrameTimeout,
		inbox:      NewInbox(DefaultInboxSize),
	}
}

// IsConnected implements Transport.
func (s *Stream) IsConnected() bool {
	s.stateLock.RLock()
	defer s.stateLock.RUnlock()
	return s.connected
}

// Send implements Transport.
func (s *Stream) Send(frame []byte) error {
	if len(frame) > protocol.MaxFrameSize {
		return ErrBufferFull
	}
	if !s.IsConnected() {
		return ErrDisconnected
	}
	s.sendLock.Lock()
	defer s.sendLock.Unlock()
	_, err := s.ReadWriter.Write(frame)
	return IOError(err)
}

// Receive implements Transport.
func (s *Stream) Receive() ([]byte, error) {
	frame, err := s.inbox.Pop()
	if frame != nil || err != nil {
		return frame, err
	}
	if !s.IsConnected() {
		return nil, ErrDisconnected
	}
	return nil, nil
}

// Ready implements Waiter.
func (s *Stream) Ready() <-chan struct{} {
	return s.inbox.Ready()
}

// Run reads the stream in the background until ctx is done or reading fails.
// The Stream is connected while Run is running.
func (s *Stream) Run(ctx context.Context) error {
	s.scanner.Reset()
	s.timer = time.NewTimer(s.Timeout)
	s.timer.Stop()
	defer s.timer.Stop()
	s.setConnected(ctx, true)
	defer s.setConnected(ctx, false)

	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.readLoop(subCtx, chunkCh, errCh)
	for {
		select {
		case chunk := <-chunkCh:
			for _, b := range chunk {
				s.applyScanResult(s.scanner.Scan(b))
			}
			s.restartTimer()
		case err := <-errCh:
			if errors.Is(err, io.EOF) {
				return ErrDisconnected
			}
			return IOError(err)
		case <-ctx.Done():
			return ctx.Err()
		case <-s.timer.C:
			sr := s.scanner.Timeout()
			if sr.Dropped > 0 {
				glog.V(2).Infof("partial frame timeout, %d bytes dropped", sr.Dropped)
			}
			s.applyScanResult(sr)
			s.restartTimer()
		}
	}
}

func (s *Stream) readLoop(ctx context.Context, chunkCh chan []byte, errCh chan error) {
	buf := make([]byte, protocol.MaxFrameSize)
	for {
		n, err := s.ReadWriter.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case chunkCh <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func (s *Stream) applyScanResult(sr ScanResult) {
	if sr.Dropped > 0 {
		glog.V(3).Infof("%d bytes dropped", sr.Dropped)
	}
	for _, frame := range sr.Frames {
		if !s.inbox.Push(frame) {
			glog.Warningf("rx queue full, frame of %d bytes dropped", len(frame))
		}
	}
}

// restartTimer arms the partial frame timer while a frame is being received.
func (s *Stream) restartTimer() {
	if s.scanner.State().IsReceiving() {
		s.timer.Reset(s.Timeout)
	} else {
		s.timer.Stop()
	}
}

func (s *Stream) setConnected(ctx context.Context, connected bool) {
	s.stateLock.Lock()
	changed := s.connected != connected
	s.connected = connected
	s.stateLock.Unlock()
	if !connected {
		s.inbox.Clear()
	}
	if changed {
		glog.V(1).Infof("stream connected=%v", connected)
		if n := s.Notifier; n != nil {
			n.StateChanged(ctx, connected)
		}
	}
}
