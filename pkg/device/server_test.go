package device

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/buspirate.go/pkg/client"
	"github.com/robotalks/buspirate.go/pkg/protocol"
	"github.com/robotalks/buspirate.go/pkg/transport"
)

// memTransport is one end of an in-memory link.
type memTransport struct {
	inbox *transport.Inbox
	peer  *memTransport
}

func newMemLink() (*memTransport, *memTransport) {
	a := &memTransport{inbox: transport.NewInbox(0)}
	b := &memTransport{inbox: transport.NewInbox(0), peer: a}
	a.peer = b
	return a, b
}

func (m *memTransport) Send(frame []byte) error {
	if !m.peer.inbox.Push(append([]byte(nil), frame...)) {
		return transport.ErrBufferFull
	}
	return nil
}

func (m *memTransport) Receive() ([]byte, error) { return m.inbox.Pop() }
func (m *memTransport) IsConnected() bool        { return true }
func (m *memTransport) Ready() <-chan struct{}   { return m.inbox.Ready() }

func frameOf(t *testing.T, m protocol.Message, err error) []byte {
	require.NoError(t, err)
	frame, err := protocol.EncodeFrame(m)
	require.NoError(t, err)
	return frame
}

func decodeReply(t *testing.T, frame []byte) protocol.Message {
	msg, err := protocol.DecodeFrame(frame)
	require.NoError(t, err)
	return msg
}

func TestServerHandle(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(nil, NewEmulator())
	s.Metrics = NewMetrics(reg)
	ctx := context.Background()

	reply := decodeReply(t, s.Handle(ctx, frameOf(t, protocol.GetMode{}, nil)))
	require.Equal(t, protocol.Response{Reply: protocol.ReplyCurrentMode{Mode: protocol.ModeHiZ}}, reply)

	reply = decodeReply(t, s.Handle(ctx, frameOf(t, protocol.I2cScan{}, nil)))
	require.Equal(t, protocol.Fail(protocol.ErrorNotConfigured), reply)

	reply = decodeReply(t, s.Handle(ctx, frameOf(t, protocol.Success(), nil)))
	require.Equal(t, protocol.Fail(protocol.ErrorInvalidCommand), reply)

	corrupted := frameOf(t, protocol.GetMode{}, nil)
	corrupted[protocol.HeaderSize] ^= 0x80
	badVersion := frameOf(t, protocol.GetMode{}, nil)
	badVersion[1] = 0x02
	for _, frame := range [][]byte{corrupted, badVersion, {0xaa, 0x55}, make([]byte, 8)} {
		reply = decodeReply(t, s.Handle(ctx, frame))
		require.Equal(t, protocol.Fail(protocol.ErrorProtocol), reply)
	}

	require.Equal(t, 7.0, testutil.ToFloat64(s.Metrics.FramesReceived))
	require.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.CodecErrors.WithLabelValues("crc_mismatch")))
	require.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.CodecErrors.WithLabelValues("unsupported_version")))
	require.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.CodecErrors.WithLabelValues("too_short")))
	require.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.CodecErrors.WithLabelValues("invalid_frame")))
	require.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.Commands.WithLabelValues("GetMode", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.Commands.WithLabelValues("I2cScan", "not configured")))
	require.Equal(t, 2, testutil.CollectAndCount(s.Metrics.DispatchDuration))
}

func TestServerDispatcherContract(t *testing.T) {
	ctx := context.Background()
	s := NewServer(nil, DispatchFunc(func(context.Context, protocol.Message) protocol.Message {
		return nil
	}))
	reply := decodeReply(t, s.Handle(ctx, frameOf(t, protocol.GetMode{}, nil)))
	require.Equal(t, protocol.Fail(protocol.ErrorInvalidCommand), reply)

	// a reply which can't be encoded is answered with a protocol error.
	s.Dispatcher = DispatchFunc(func(context.Context, protocol.Message) protocol.Message {
		return protocol.Response{Reply: protocol.ReplyCurrentMode{Mode: protocol.Mode(99)}}
	})
	reply = decodeReply(t, s.Handle(ctx, frameOf(t, protocol.GetMode{}, nil)))
	require.Equal(t, protocol.Fail(protocol.ErrorProtocol), reply)
}

type serverTestCtx struct {
	t      *testing.T
	client *client.Client
	server *Server
	errCh  chan error
	cancel context.CancelFunc
}

func newServerTestCtx(t *testing.T) *serverTestCtx {
	host, dev := newMemLink()
	e := NewEmulator()
	require.NoError(t, DefaultProfile().Apply(e))
	ctx, cancel := context.WithCancel(context.Background())
	c := &serverTestCtx{
		t:      t,
		client: client.New(host),
		server: NewServer(dev, e),
		errCh:  make(chan error, 1),
		cancel: cancel,
	}
	c.server.Metrics = NewMetrics(prometheus.NewRegistry())
	go func() {
		c.errCh <- c.server.Run(ctx)
	}()
	return c
}

func (c *serverTestCtx) stop() {
	c.cancel()
	select {
	case err := <-c.errCh:
		require.ErrorIs(c.t, err, context.Canceled)
	case <-time.After(time.Second):
		c.t.Fatal("server not stopped")
	}
}

func TestClientServer(t *testing.T) {
	c := newServerTestCtx(t)
	defer c.stop()
	ctx := context.Background()
	cli := c.client

	mode, err := cli.GetMode(ctx)
	require.NoError(t, err)
	require.Equal(t, protocol.ModeHiZ, mode)

	_, err = cli.I2cScan(ctx)
	var devErr protocol.ErrorResponse
	require.ErrorAs(t, err, &devErr)
	require.Equal(t, protocol.ErrorNotConfigured, devErr.Code)

	require.NoError(t, cli.SetMode(ctx, protocol.ModeI2c))
	addrs, err := cli.I2cScan(ctx)
	require.NoError(t, err)
	require.Equal(t, []uint8{0x50, 0x68}, addrs)
	who, err := cli.I2cReadRegister(ctx, 0x68, 0x75)
	require.NoError(t, err)
	require.Equal(t, uint8(0x68), who)
	require.NoError(t, cli.I2cWrite(ctx, 0x50, []byte{0x00, 'h', 'i'}))
	require.NoError(t, cli.I2cWrite(ctx, 0x50, []byte{0x00}))
	data, err := cli.I2cRead(ctx, 0x50, 2)
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), data)

	require.NoError(t, cli.SetMode(ctx, protocol.ModeUart))
	require.NoError(t, cli.UartConfig(ctx, 9600))
	require.NoError(t, cli.UartWrite(ctx, []byte("ping")))
	data, err = cli.UartRead(ctx, 16)
	require.NoError(t, err)
	require.Equal(t, []byte("ping"), data)

	require.NoError(t, cli.SetConfig(ctx, "owner", "bench"))
	value, err := cli.GetConfig(ctx, "owner")
	require.NoError(t, err)
	require.Equal(t, "bench", value)

	require.NoError(t, cli.FileWrite(ctx, "/notes.txt", []byte("hello")))
	names, err := cli.FileList(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, []string{"notes.txt", "sys/"}, names)
	content, err := cli.FileRead(ctx, "/notes.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), content)
	err = cli.FileWrite(ctx, "/sys/version", nil)
	require.ErrorAs(t, err, &devErr)
	require.Equal(t, protocol.ErrorPermissionDenied, devErr.Code)

	require.NoError(t, cli.SetMode(ctx, protocol.ModeSpi))
	data, err = cli.SpiTransfer(ctx, []byte{0x9f, 0x00})
	require.NoError(t, err)
	require.Equal(t, []byte{0x9f, 0x00}, data)

	require.Equal(t, 20.0, testutil.ToFloat64(c.server.Metrics.FramesReceived))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(c.server.Metrics.FramesSent) == 20
	}, time.Second, time.Millisecond)
}

func TestMetricsHandler(t *testing.T) {
	reg := NewRegistry()
	m := NewMetrics(reg)
	m.frameReceived()
	m.codecError("crc_mismatch")

	rec := httptest.NewRecorder()
	MetricsHandler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	require.True(t, strings.Contains(body, "buspirate_frames_received_total 1"))
	require.True(t, strings.Contains(body, `buspirate_codec_errors_total{kind="crc_mismatch"} 1`))
	require.True(t, strings.Contains(body, "go_goroutines"))

	var nilMetrics *Metrics
	nilMetrics.frameReceived()
	nilMetrics.command("GetMode", "ok", time.Millisecond)
}
