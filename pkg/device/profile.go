package device

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/buspirate.go/pkg/protocol"
)

// Profile describes the initial state of an Emulator.
type Profile struct {
	Mode     string            `yaml:"mode"`
	Config   map[string]string `yaml:"config"`
	ReadOnly []string          `yaml:"readonly"`
	Files    map[string]string `yaml:"files"`
	I2c      []I2cProfile      `yaml:"i2c"`
	Uart     UartProfile       `yaml:"uart"`
}

// I2cProfile describes an emulated I2C device.
type I2cProfile struct {
	Name      string          `yaml:"name"`
	Addr      uint8           `yaml:"addr"`
	Registers map[uint8]uint8 `yaml:"registers"`
}

// UartProfile configures the UART.
type UartProfile struct {
	Baudrate uint32 `yaml:"baudrate"`
}

// DefaultProfile is used when no profile is given.
func DefaultProfile() *Profile {
	return &Profile{
		Config:   map[string]string{"name": "piratesim"},
		ReadOnly: []string{"/sys"},
		Files:    map[string]string{"/sys/version": "piratesim 1.0\n"},
		I2c: []I2cProfile{
			{Name: "eeprom", Addr: 0x50},
			{Name: "mpu6050", Addr: 0x68, Registers: map[uint8]uint8{0x75: 0x68}},
		},
	}
}

// LoadProfile parses a YAML profile, unknown fields are rejected.
func LoadProfile(r io.Reader) (*Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var p Profile
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return &p, nil
}

// LoadProfileFile loads a profile from a file.
func LoadProfileFile(fn string) (*Profile, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := LoadProfile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return p, nil
}

// Apply loads the profile into an Emulator.
func (p *Profile) Apply(e *Emulator) error {
	for _, dev := range p.I2c {
		if err := e.AttachI2c(dev.Addr, dev.Registers); err != nil {
			return fmt.Errorf("i2c device %s: %w", dev.Name, err)
		}
	}
	for name, content := range p.Files {
		if err := e.PutFile(name, []byte(content)); err != nil {
			return fmt.Errorf("file %s: %w", name, err)
		}
	}

	e.lock.Lock()
	defer e.lock.Unlock()
	e.ReadOnly = append(e.ReadOnly, p.ReadOnly...)
	for key, value := range p.Config {
		if err := e.setConfig(key, value); err != nil {
			return fmt.Errorf("config %q: %w", key, err)
		}
	}
	if p.Uart.Baudrate != 0 {
		if err := e.uart.SetBaudrate(p.Uart.Baudrate); err != nil {
			return err
		}
	}
	if p.Mode != "" {
		mode, err := protocol.ParseMode(p.Mode)
		if err != nil {
			return err
		}
		return e.setMode(mode)
	}
	return nil
}
