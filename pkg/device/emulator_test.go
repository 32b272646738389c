package device

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/buspirate.go/pkg/protocol"
)

type emulatorTestCtx struct {
	t *testing.T
	e *Emulator
}

func newEmulatorTestCtx(t *testing.T) *emulatorTestCtx {
	e := NewEmulator()
	require.NoError(t, DefaultProfile().Apply(e))
	return &emulatorTestCtx{t: t, e: e}
}

func (c *emulatorTestCtx) do(cmd protocol.Message, err error) protocol.Message {
	require.NoError(c.t, err)
	return c.e.Dispatch(context.Background(), cmd)
}

func (c *emulatorTestCtx) ok(cmd protocol.Message, err error) protocol.Reply {
	reply := c.do(cmd, err)
	resp, ok := reply.(protocol.Response)
	require.True(c.t, ok, "%v: %v", cmd.Tag(), reply)
	return resp.Reply
}

func (c *emulatorTestCtx) errCode(cmd protocol.Message, err error) protocol.ErrorCode {
	reply := c.do(cmd, err)
	resp, ok := reply.(protocol.ErrorResponse)
	require.True(c.t, ok, "%v: %v", cmd.Tag(), reply)
	return resp.Code
}

func (c *emulatorTestCtx) data(cmd protocol.Message, err error) []byte {
	reply, ok := c.ok(cmd, err).(protocol.ReplyData)
	require.True(c.t, ok)
	return reply.Data()
}

func (c *emulatorTestCtx) mode(mode protocol.Mode) {
	require.Equal(c.t, protocol.ReplySuccess{}, c.ok(protocol.SetMode{Mode: mode}, nil))
	require.Equal(c.t, protocol.ReplyCurrentMode{Mode: mode}, c.ok(protocol.GetMode{}, nil))
}

func TestEmulatorModes(t *testing.T) {
	c := newEmulatorTestCtx(t)
	require.Equal(t, protocol.ModeHiZ, c.e.Mode())
	require.Equal(t, protocol.ReplyCurrentMode{Mode: protocol.ModeHiZ}, c.ok(protocol.GetMode{}, nil))

	for _, mode := range protocol.Modes() {
		c.mode(mode)
		require.Equal(t, mode == protocol.ModeI2c, c.e.i2c.active)
		require.Equal(t, mode == protocol.ModeSpi, c.e.spi.active)
		require.Equal(t, mode == protocol.ModeUart, c.e.uart.active)
	}
	c.mode(protocol.ModeHiZ)
	c.mode(protocol.ModeHiZ)
}

func TestEmulatorModeGating(t *testing.T) {
	testCases := []struct {
		mode protocol.Mode
		cmd  protocol.Message
	}{
		{protocol.ModeI2c, protocol.I2cScan{}},
		{protocol.ModeI2c, protocol.I2cRead{Addr: 0x50, Len: 1}},
		{protocol.ModeI2c, protocol.I2cReadRegister{Addr: 0x68, Reg: 0x75}},
		{protocol.ModeI2c, protocol.I2cWriteRegister{Addr: 0x68, Reg: 0x6b}},
		{protocol.ModeI2c, protocol.I2cWrite{Addr: 0x50}},
		{protocol.ModeSpi, protocol.SpiTransfer{}},
		{protocol.ModeUart, protocol.UartWrite{}},
		{protocol.ModeUart, protocol.UartRead{Len: 1}},
		{protocol.ModeUart, protocol.UartConfig{Baudrate: 9600}},
	}
	for _, tc := range testCases {
		t.Run(tc.cmd.Tag().String(), func(t *testing.T) {
			c := newEmulatorTestCtx(t)
			for _, mode := range []protocol.Mode{protocol.ModeHiZ, protocol.ModeI2c, protocol.ModeSpi, protocol.ModeUart} {
				if mode == tc.mode {
					continue
				}
				c.mode(mode)
				require.Equal(t, protocol.ErrorNotConfigured, c.errCode(tc.cmd, nil))
			}
			c.mode(tc.mode)
			_, ok := c.do(tc.cmd, nil).(protocol.Response)
			require.True(t, ok)
		})
	}
}

func TestEmulatorI2c(t *testing.T) {
	c := newEmulatorTestCtx(t)
	c.mode(protocol.ModeI2c)

	devices, ok := c.ok(protocol.I2cScan{}, nil).(protocol.ReplyI2cDevices)
	require.True(t, ok)
	require.Equal(t, []uint8{0x50, 0x68}, devices.Addrs())

	require.Equal(t, []byte{0x68}, c.data(protocol.I2cReadRegister{Addr: 0x68, Reg: 0x75}, nil))

	c.ok(protocol.NewI2cWrite(0x50, []byte{0x10, 1, 2, 3}))
	c.ok(protocol.NewI2cWrite(0x50, []byte{0x10}))
	require.Equal(t, []byte{1, 2, 3}, c.data(protocol.I2cRead{Addr: 0x50, Len: 3}, nil))

	c.ok(protocol.I2cWriteRegister{Addr: 0x68, Reg: 0x6b, Value: 0x40}, nil)
	require.Equal(t, []byte{0x40}, c.data(protocol.I2cReadRegister{Addr: 0x68, Reg: 0x6b}, nil))

	require.Equal(t, protocol.ErrorBus, c.errCode(protocol.I2cReadRegister{Addr: 0x20}, nil))
	require.Equal(t, protocol.ErrorBus, c.errCode(protocol.I2cRead{Addr: 0x20, Len: 1}, nil))
	require.Equal(t, protocol.ErrorInvalidParameter, c.errCode(protocol.I2cRead{Addr: 0x80, Len: 1}, nil))
}

func TestEmulatorSpi(t *testing.T) {
	c := newEmulatorTestCtx(t)
	c.mode(protocol.ModeSpi)
	require.Equal(t, []byte{0x9f, 0, 0}, c.data(protocol.NewSpiTransfer([]byte{0x9f, 0, 0})))
	require.Empty(t, c.data(protocol.SpiTransfer{}, nil))
}

func TestEmulatorUart(t *testing.T) {
	c := newEmulatorTestCtx(t)
	c.mode(protocol.ModeUart)
	require.Equal(t, protocol.ErrorInvalidParameter, c.errCode(protocol.UartConfig{Baudrate: 100}, nil))
	c.ok(protocol.UartConfig{Baudrate: 9600}, nil)
	require.Equal(t, uint32(9600), c.e.uart.Baudrate)

	require.Empty(t, c.data(protocol.UartRead{Len: 16}, nil))
	c.ok(protocol.NewUartWrite([]byte("at\r")))
	require.Equal(t, []byte("at"), c.data(protocol.UartRead{Len: 2}, nil))
	require.Equal(t, []byte("\r"), c.data(protocol.UartRead{Len: 16}, nil))

	// reads are capped to what a reply carries.
	chunk := make([]byte, protocol.MaxUartData)
	for n := 0; n < 3; n++ {
		c.ok(protocol.NewUartWrite(chunk))
	}
	require.Len(t, c.data(protocol.UartRead{Len: 1000}, nil), protocol.MaxReplyData)
	require.Len(t, c.data(protocol.UartRead{Len: 1000}, nil), protocol.MaxUartData)

	for n := 0; n < UartBufferSize/protocol.MaxUartData; n++ {
		c.ok(protocol.NewUartWrite(chunk))
	}
	require.Equal(t, protocol.ErrorBus, c.errCode(protocol.NewUartWrite([]byte{1})))

	// switching modes drops pending bytes.
	c.mode(protocol.ModeHiZ)
	c.mode(protocol.ModeUart)
	require.Empty(t, c.data(protocol.UartRead{Len: 16}, nil))
}

func TestEmulatorConfig(t *testing.T) {
	c := newEmulatorTestCtx(t)
	require.Equal(t, protocol.ErrorNotConfigured, c.errCode(protocol.NewGetConfig("missing")))
	require.Equal(t, protocol.ErrorInvalidParameter, c.errCode(protocol.NewSetConfig("", "x")))

	c.ok(protocol.NewSetConfig("mode", "spi"))
	value, ok := c.ok(protocol.NewGetConfig("mode")).(protocol.ReplyConfigValue)
	require.True(t, ok)
	require.Equal(t, "spi", value.Value())

	c.ok(protocol.NewSetConfig("mode", "i2c"))
	value = c.ok(protocol.NewGetConfig("mode")).(protocol.ReplyConfigValue)
	require.Equal(t, "i2c", value.Value())

	// the default profile holds "name", fill the rest.
	for n := len(c.e.config); n < MaxConfigEntries; n++ {
		c.ok(protocol.NewSetConfig(fmt.Sprintf("key%d", n), "v"))
	}
	require.Equal(t, protocol.ErrorBus, c.errCode(protocol.NewSetConfig("one-more", "v")))
	c.ok(protocol.NewSetConfig("mode", "uart"))
}

func (c *emulatorTestCtx) list(dir string) []string {
	reply, ok := c.ok(protocol.NewFileList(dir)).(protocol.ReplyFileList)
	require.True(c.t, ok)
	return reply.Names()
}

func TestEmulatorFiles(t *testing.T) {
	c := newEmulatorTestCtx(t)
	require.Equal(t, []byte("piratesim 1.0\n"), c.data(protocol.NewFileRead("/sys/version")))
	require.Equal(t, []byte("piratesim 1.0\n"), c.data(protocol.NewFileRead("/sys/../sys//version")))
	require.Equal(t, protocol.ErrorPermissionDenied, c.errCode(protocol.NewFileWrite("/sys/version", []byte("x"))))
	require.Equal(t, protocol.ErrorPermissionDenied, c.errCode(protocol.NewFileWrite("/sys/new", []byte("x"))))
	require.Equal(t, protocol.ErrorFileNotFound, c.errCode(protocol.NewFileRead("/missing")))
	require.Equal(t, protocol.ErrorInvalidParameter, c.errCode(protocol.NewFileRead("relative")))

	c.ok(protocol.NewFileWrite("/data/a.txt", []byte("hello")))
	c.ok(protocol.NewFileWrite("/data/logs/1.log", nil))
	c.ok(protocol.NewFileWrite("/system", []byte("not /sys")))
	require.Equal(t, []byte("hello"), c.data(protocol.NewFileRead("/data/a.txt")))
	require.Empty(t, c.data(protocol.NewFileRead("/data/logs/1.log")))

	require.Equal(t, []string{"data/", "sys/", "system"}, c.list("/"))
	require.Equal(t, []string{"a.txt", "logs/"}, c.list("/data"))
	require.Equal(t, []string{"a.txt", "logs/"}, c.list("/data/"))
	require.Equal(t, []string{"1.log"}, c.list("/data/logs"))
	require.Equal(t, protocol.ErrorFileNotFound, c.errCode(protocol.NewFileList("/nothing")))

	empty := &emulatorTestCtx{t: t, e: NewEmulator()}
	require.Empty(t, empty.list("/"))
}

func TestEmulatorFileLimits(t *testing.T) {
	e := NewEmulator()
	big := make([]byte, 2*protocol.MaxReplyData)
	require.NoError(t, e.PutFile("/big", big))
	c := &emulatorTestCtx{t: t, e: e}
	require.Len(t, c.data(protocol.NewFileRead("/big")), protocol.MaxReplyData)

	// listings are cut to what fits in a reply.
	for n := 0; n < 40; n++ {
		require.NoError(t, e.PutFile(fmt.Sprintf("/many/%02d", n), nil))
	}
	require.NoError(t, e.PutFile("/many/"+strings.Repeat("x", protocol.MaxFileName+1), nil))
	names := c.list("/many")
	require.Len(t, names, protocol.MaxFileEntries)
	require.Equal(t, "00", names[0])

	for n := len(e.files); n < MaxFiles; n++ {
		c.ok(protocol.NewFileWrite(fmt.Sprintf("/f%d", n), nil))
	}
	require.Equal(t, protocol.ErrorBus, c.errCode(protocol.NewFileWrite("/overflow", nil)))
	c.ok(protocol.NewFileWrite("/f50", []byte("rewrite")))
	require.ErrorIs(t, e.PutFile("/overflow", nil), ErrOverflow)
	require.ErrorIs(t, e.PutFile("relative", nil), ErrInvalidParameter)
}

func TestEmulatorRejectsReplies(t *testing.T) {
	c := newEmulatorTestCtx(t)
	require.Equal(t, protocol.ErrorInvalidCommand, c.errCode(protocol.Success(), nil))
	require.Equal(t, protocol.ErrorInvalidCommand, c.errCode(protocol.Fail(protocol.ErrorBus), nil))
}
