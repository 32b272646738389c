package protocol

import (
	"fmt"
	"strings"
)

// Mode is the operating mode of the device. Exactly one is active at a time.
type Mode uint32

// Modes in wire order.
const (
	ModeHiZ Mode = iota
	ModeI2c
	ModeSpi
	ModeUart
	ModeOneWire
	ModeTwoWire
	ModeThreeWire
	ModeDio
	ModeInfrared
	ModeUsb
	ModeBluetooth
	ModeWifi
	ModeEthernet
	ModeJtag
	ModeLed
	ModeI2s
	ModeCan
	ModeSubGhz
	ModeRfid
	ModeRf24

	modeCount
)

var modeNames = [modeCount]string{
	ModeHiZ:       "hiz",
	ModeI2c:       "i2c",
	ModeSpi:       "spi",
	ModeUart:      "uart",
	ModeOneWire:   "1wire",
	ModeTwoWire:   "2wire",
	ModeThreeWire: "3wire",
	ModeDio:       "dio",
	ModeInfrared:  "infrared",
	ModeUsb:       "usb",
	ModeBluetooth: "bluetooth",
	ModeWifi:      "wifi",
	ModeEthernet:  "ethernet",
	ModeJtag:      "jtag",
	ModeLed:       "led",
	ModeI2s:       "i2s",
	ModeCan:       "can",
	ModeSubGhz:    "subghz",
	ModeRfid:      "rfid",
	ModeRf24:      "rf24",
}

// Modes returns all modes in wire order.
func Modes() []Mode {
	modes := make([]Mode, modeCount)
	for n := range modes {
		modes[n] = Mode(n)
	}
	return modes
}

// IsValid checks if the mode is a known one.
func (m Mode) IsValid() bool {
	return m < modeCount
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	if !m.IsValid() {
		return fmt.Sprintf("mode(%d)", uint32(m))
	}
	return modeNames[m]
}

// ParseMode parses a mode by name, case insensitive.
func ParseMode(name string) (Mode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for n, s := range modeNames {
		if s == name {
			return Mode(n), nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", name)
}
