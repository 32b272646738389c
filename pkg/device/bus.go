package device

import (
	"errors"
	"fmt"
	"sort"
)

// Bus errors, mapped to protocol error codes by the Emulator.
var (
	// ErrInvalidParameter indicates an argument out of range.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNoDevice indicates no device acknowledged on the bus.
	ErrNoDevice = errors.New("no device")
	// ErrOverflow indicates a bus buffer overflowed.
	ErrOverflow = errors.New("bus buffer overflow")
)

// BusMode is a peripheral bus which is initialized when its mode becomes
// active and released when another mode is selected.
type BusMode interface {
	Name() string
	Init() error
	Deinit() error
}

// Scanner is a bus which can discover attached devices.
type Scanner interface {
	Scan() ([]uint8, error)
}

// I2C addresses outside of this range are reserved.
const (
	I2cFirstAddr uint8 = 0x08
	I2cLastAddr  uint8 = 0x77
)

// I2cDevice is an emulated register-file device, like an EEPROM or a sensor.
// A write sets the register pointer with its first byte and stores the rest
// from there, a read continues from the pointer. The pointer wraps at 256.
type I2cDevice struct {
	Addr uint8
	Regs [256]uint8

	ptr uint8
}

// I2cBus emulates an I2C bus.
type I2cBus struct {
	devices map[uint8]*I2cDevice
	active  bool
}

// NewI2cBus creates an I2cBus.
func NewI2cBus() *I2cBus {
	return &I2cBus{devices: make(map[uint8]*I2cDevice)}
}

// Name implements BusMode.
func (b *I2cBus) Name() string { return "i2c" }

// Init implements BusMode.
func (b *I2cBus) Init() error {
	b.active = true
	return nil
}

// Deinit implements BusMode.
func (b *I2cBus) Deinit() error {
	b.active = false
	for _, dev := range b.devices {
		dev.ptr = 0
	}
	return nil
}

// Attach adds a device with initial register values.
func (b *I2cBus) Attach(addr uint8, regs map[uint8]uint8) (*I2cDevice, error) {
	if addr < I2cFirstAddr || addr > I2cLastAddr {
		return nil, fmt.Errorf("i2c address 0x%02x: %w", addr, ErrInvalidParameter)
	}
	dev := &I2cDevice{Addr: addr}
	for reg, val := range regs {
		dev.Regs[reg] = val
	}
	b.devices[addr] = dev
	return dev, nil
}

// Scan implements Scanner.
func (b *I2cBus) Scan() ([]uint8, error) {
	var addrs []uint8
	for addr := range b.devices {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs, nil
}

func (b *I2cBus) device(addr uint8) (*I2cDevice, error) {
	if addr > 0x7f {
		return nil, fmt.Errorf("i2c address 0x%02x: %w", addr, ErrInvalidParameter)
	}
	dev := b.devices[addr]
	if dev == nil {
		return nil, fmt.Errorf("i2c address 0x%02x: %w", addr, ErrNoDevice)
	}
	return dev, nil
}

// Write writes to a device.
func (b *I2cBus) Write(addr uint8, data []byte) error {
	dev, err := b.device(addr)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	dev.ptr = data[0]
	for _, v := range data[1:] {
		dev.Regs[dev.ptr] = v
		dev.ptr++
	}
	return nil
}

// Read reads n bytes from a device.
func (b *I2cBus) Read(addr uint8, n int) ([]byte, error) {
	dev, err := b.device(addr)
	if err != nil {
		return nil, err
	}
	data := make([]byte, n)
	for i := range data {
		data[i] = dev.Regs[dev.ptr]
		dev.ptr++
	}
	return data, nil
}

// ReadRegister reads one register.
func (b *I2cBus) ReadRegister(addr, reg uint8) (uint8, error) {
	if err := b.Write(addr, []byte{reg}); err != nil {
		return 0, err
	}
	data, err := b.Read(addr, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// WriteRegister writes one register.
func (b *I2cBus) WriteRegister(addr, reg, value uint8) error {
	return b.Write(addr, []byte{reg, value})
}

// SpiBus emulates a SPI bus with MISO looped back to MOSI.
type SpiBus struct {
	active bool
}

// Name implements BusMode.
func (b *SpiBus) Name() string { return "spi" }

// Init implements BusMode.
func (b *SpiBus) Init() error {
	b.active = true
	return nil
}

// Deinit implements BusMode.
func (b *SpiBus) Deinit() error {
	b.active = false
	return nil
}

// Transfer clocks data out and returns what's clocked in.
func (b *SpiBus) Transfer(data []byte) []byte {
	return append([]byte(nil), data...)
}

// UART limits.
const (
	UartBufferSize  = 1024
	UartMinBaudrate = 300
	UartMaxBaudrate = 4000000
)

// UartBus emulates a UART with TX looped back to RX.
type UartBus struct {
	Baudrate uint32

	rx     []byte
	active bool
}

// NewUartBus creates a UartBus.
func NewUartBus() *UartBus {
	return &UartBus{Baudrate: 115200}
}

// Name implements BusMode.
func (b *UartBus) Name() string { return "uart" }

// Init implements BusMode.
func (b *UartBus) Init() error {
	b.active = true
	return nil
}

// Deinit implements BusMode. Pending bytes are dropped.
func (b *UartBus) Deinit() error {
	b.active = false
	b.rx = nil
	return nil
}

// SetBaudrate configures the baudrate.
func (b *UartBus) SetBaudrate(baudrate uint32) error {
	if baudrate < UartMinBaudrate || baudrate > UartMaxBaudrate {
		return fmt.Errorf("baudrate %d: %w", baudrate, ErrInvalidParameter)
	}
	b.Baudrate = baudrate
	return nil
}

// Write transmits data.
func (b *UartBus) Write(data []byte) error {
	if len(b.rx)+len(data) > UartBufferSize {
		return ErrOverflow
	}
	b.rx = append(b.rx, data...)
	return nil
}

// Read receives up to n bytes.
func (b *UartBus) Read(n int) []byte {
	if n > len(b.rx) {
		n = len(b.rx)
	}
	if n == 0 {
		return nil
	}
	data := append([]byte(nil), b.rx[:n]...)
	b.rx = b.rx[n:]
	return data
}
