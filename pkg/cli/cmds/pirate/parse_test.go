package pirate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/buspirate.go/pkg/protocol"
)

func mustMsg(m protocol.Message, err error) protocol.Message {
	if err != nil {
		panic(err)
	}
	return m
}

func TestParse(t *testing.T) {
	testCases := []struct {
		args []string
		msg  protocol.Message
	}{
		{[]string{"mode"}, protocol.GetMode{}},
		{[]string{"mode", "SPI"}, protocol.SetMode{Mode: protocol.ModeSpi}},
		{[]string{"scan"}, protocol.I2cScan{}},
		{[]string{"i2c.write", "0x50", "0x00", "s:hi"}, mustMsg(protocol.NewI2cWrite(0x50, []byte{0, 'h', 'i'}))},
		{[]string{"i2c.read", "0x50", "16"}, protocol.I2cRead{Addr: 0x50, Len: 16}},
		{[]string{"i2c.reg", "0x68", "0x75"}, protocol.I2cReadRegister{Addr: 0x68, Reg: 0x75}},
		{[]string{"i2c.setreg", "0x68", "0x6b", "0"}, protocol.I2cWriteRegister{Addr: 0x68, Reg: 0x6b}},
		{[]string{"xfer", "0x9f", "0", "0"}, mustMsg(protocol.NewSpiTransfer([]byte{0x9f, 0, 0}))},
		{[]string{"uart.write", `s:AT\r\n`}, mustMsg(protocol.NewUartWrite([]byte("AT\r\n")))},
		{[]string{"uart.read"}, protocol.UartRead{Len: protocol.MaxReplyData}},
		{[]string{"uart.read", "8"}, protocol.UartRead{Len: 8}},
		{[]string{"uart.baud", "9600"}, protocol.UartConfig{Baudrate: 9600}},
		{[]string{"config.set", "name", "my", "bench"}, mustMsg(protocol.NewSetConfig("name", "my bench"))},
		{[]string{"config.get", "name"}, mustMsg(protocol.NewGetConfig("name"))},
		{[]string{"ls"}, mustMsg(protocol.NewFileList("/"))},
		{[]string{"file.ls", "/sys"}, mustMsg(protocol.NewFileList("/sys"))},
		{[]string{"cat", "/sys/version"}, mustMsg(protocol.NewFileRead("/sys/version"))},
		{[]string{"file.put", "/a", "s:x", "10"}, mustMsg(protocol.NewFileWrite("/a", []byte("x\n")))},
	}
	for _, tc := range testCases {
		t.Run(tc.args[0], func(t *testing.T) {
			msg, err := Parse(tc.args)
			require.NoError(t, err)
			require.Equal(t, tc.msg, msg)
		})
	}
}

func TestParseErrors(t *testing.T) {
	testCases := [][]string{
		nil,
		{"unknown"},
		{"mode", "serial"},
		{"i2c.write"},
		{"i2c.write", "0x100"},
		{"i2c.read", "0x50"},
		{"i2c.setreg", "0x50", "1", "256"},
		{"uart.read", "70000"},
		{"uart.baud"},
		{"uart.baud", "-1"},
		{"config.set", "key"},
		{"config.get"},
		{"cat"},
		{"file.put"},
		{"xfer", "zz"},
		{"uart.write", `s:\q`},
	}
	for _, args := range testCases {
		_, err := Parse(args)
		require.Error(t, err, "%v", args)
	}

	data := make([]string, protocol.MaxSpiData+1)
	for n := range data {
		data[n] = "0"
	}
	_, err := Parse(append([]string{"xfer"}, data...))
	require.ErrorIs(t, err, protocol.ErrCapacityExceeded)
}

func TestFind(t *testing.T) {
	require.Equal(t, "i2c.scan", Find("scan").Name)
	require.Equal(t, "i2c.scan", Find("i2c.scan").Name)
	require.Nil(t, Find("nope"))
	names := make(map[string]bool)
	for _, cmd := range Commands {
		require.False(t, names[cmd.Name], cmd.Name)
		names[cmd.Name] = true
	}
}
