package device

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/buspirate.go/pkg/protocol"
)

const testProfile = `
mode: i2c
config:
  name: bench
readonly:
  - /rom
files:
  /rom/id: "42"
  /home/readme: hello
i2c:
  - name: rtc
    addr: 0x6f
    registers:
      0x00: 0x59
      0x07: 0x80
uart:
  baudrate: 9600
`

func TestLoadProfile(t *testing.T) {
	p, err := LoadProfile(strings.NewReader(testProfile))
	require.NoError(t, err)
	require.Equal(t, &Profile{
		Mode:     "i2c",
		Config:   map[string]string{"name": "bench"},
		ReadOnly: []string{"/rom"},
		Files:    map[string]string{"/rom/id": "42", "/home/readme": "hello"},
		I2c: []I2cProfile{
			{Name: "rtc", Addr: 0x6f, Registers: map[uint8]uint8{0x00: 0x59, 0x07: 0x80}},
		},
		Uart: UartProfile{Baudrate: 9600},
	}, p)

	e := NewEmulator()
	require.NoError(t, p.Apply(e))
	require.Equal(t, protocol.ModeI2c, e.Mode())
	require.Equal(t, uint32(9600), e.uart.Baudrate)
	require.Equal(t, "bench", e.config["name"])
	v, err := e.i2c.ReadRegister(0x6f, 0x07)
	require.NoError(t, err)
	require.Equal(t, uint8(0x80), v)
	require.ErrorIs(t, e.writeFile("/rom/id", nil), errPermissionDenied)
	require.NoError(t, e.writeFile("/home/readme", nil))
}

func TestLoadProfileErrors(t *testing.T) {
	testCases := []struct {
		name    string
		profile string
	}{
		{"unknown field", "modes: i2c\n"},
		{"register overflow", "i2c:\n  - addr: 0x50\n    registers: {0x100: 1}\n"},
		{"bad yaml", "mode: [\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadProfile(strings.NewReader(tc.profile))
			require.Error(t, err)
		})
	}

	p, err := LoadProfile(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, &Profile{}, p)
}

func TestApplyProfileErrors(t *testing.T) {
	testCases := []struct {
		name    string
		profile Profile
	}{
		{"reserved address", Profile{I2c: []I2cProfile{{Addr: 0x03}}}},
		{"relative file", Profile{Files: map[string]string{"etc/x": ""}}},
		{"empty config key", Profile{Config: map[string]string{"": "x"}}},
		{"baudrate", Profile{Uart: UartProfile{Baudrate: 1}}},
		{"mode", Profile{Mode: "serial"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Error(t, tc.profile.Apply(NewEmulator()))
		})
	}
}

func TestLoadProfileFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("mode: spi\n"), 0644))
	p, err := LoadProfileFile(fn)
	require.NoError(t, err)
	require.Equal(t, "spi", p.Mode)

	_, err = LoadProfileFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
