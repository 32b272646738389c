package frame

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	testCases := []struct {
		args  []string
		frame string
	}{
		{[]string{"mode"}, "aa0101000130ab55"},
		{[]string{"i2c.scan"}, "aa01010002ab9955"},
		{[]string{"mode", "spi"}, "aa010200000257de55"},
		{[]string{"uart.baud", "115200"}, "aa0104000a808407584c55"},
		{[]string{"i2c.write", "0x50", "1", "2", "3"}, "aa0106000350030102038ee655"},
		{[]string{"config.set", "mode", "spi"}, "aa010a000b046d6f646503737069916055"},
	}
	for _, tc := range testCases {
		frame, err := Encode(tc.args)
		require.NoError(t, err)
		require.Equal(t, tc.frame, hex.EncodeToString(frame))
	}
	_, err := Encode([]string{"nope"})
	require.Error(t, err)
}

func TestParseHex(t *testing.T) {
	b, err := ParseHex([]string{"aa:01", "0x0100", "01 30"})
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa, 0x01, 0x01, 0x00, 0x01, 0x30}, b)
	_, err = ParseHex([]string{"abc"})
	require.Error(t, err)
}
