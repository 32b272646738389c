package device

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/buspirate.go/pkg/protocol"
	"github.com/robotalks/buspirate.go/pkg/transport"
)

// Server answers every command frame received from a Transport with exactly
// one reply frame.
type Server struct {
	Transport  transport.Transport
	Dispatcher Dispatcher
	Metrics    *Metrics
}

// NewServer creates a Server.
func NewServer(t transport.Transport, d Dispatcher) *Server {
	return &Server{Transport: t, Dispatcher: d}
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	for {
		frame, err := transport.ReceiveContext(ctx, s.Transport)
		if errors.Is(err, transport.ErrBufferFull) {
			glog.Warning("frames dropped: inbox overflow")
			continue
		}
		if err != nil {
			return err
		}
		reply := s.Handle(ctx, frame)
		if reply == nil {
			continue
		}
		if err := s.Transport.Send(reply); err != nil {
			glog.Errorf("send reply failed: %v", err)
			if errors.Is(err, transport.ErrDisconnected) {
				return err
			}
			continue
		}
		s.Metrics.frameSent()
	}
}

// Handle decodes a frame, dispatches the command and returns the encoded
// reply. A frame which doesn't decode is answered with a protocol error.
func (s *Server) Handle(ctx context.Context, frame []byte) []byte {
	s.Metrics.frameReceived()
	msg, err := protocol.DecodeFrame(frame)
	if err != nil {
		glog.V(1).Infof("bad frame % x: %v", frame, err)
		s.Metrics.codecError(codecErrorKind(err))
		return encodeReply(protocol.Fail(protocol.ErrorProtocol))
	}
	if !protocol.IsCommand(msg) {
		glog.V(1).Infof("unexpected %v from host", msg.Tag())
		return encodeReply(protocol.Fail(protocol.ErrorInvalidCommand))
	}

	start := time.Now()
	reply := s.Dispatcher.Dispatch(ctx, msg)
	result := "ok"
	switch r := reply.(type) {
	case protocol.Response:
	case protocol.ErrorResponse:
		result = r.Code.String()
	default:
		glog.Errorf("%v: dispatcher returned %T", msg.Tag(), reply)
		reply, result = protocol.Fail(protocol.ErrorInvalidCommand), protocol.ErrorInvalidCommand.String()
	}
	s.Metrics.command(msg.Tag().String(), result, time.Since(start))
	return encodeReply(reply)
}

func encodeReply(reply protocol.Message) []byte {
	frame, err := protocol.EncodeFrame(reply)
	if err != nil {
		glog.Errorf("encode %v failed: %v", reply.Tag(), err)
		// an error response always fits.
		frame, _ = protocol.EncodeFrame(protocol.Fail(protocol.ErrorProtocol))
	}
	return frame
}

var codecErrorKinds = []struct {
	err  error
	kind string
}{
	{protocol.ErrFrameTooShort, "too_short"},
	{protocol.ErrInvalidFrame, "invalid_frame"},
	{protocol.ErrUnsupportedVersion, "unsupported_version"},
	{protocol.ErrCrcMismatch, "crc_mismatch"},
	{protocol.ErrDecodingFailed, "decoding_failed"},
}

func codecErrorKind(err error) string {
	for _, k := range codecErrorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "other"
}
