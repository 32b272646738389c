package device

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/buspirate.go/pkg/protocol"
)

// Emulator limits.
const (
	MaxConfigEntries = 32
	MaxFiles         = 64
)

// Emulator is an in-memory device implementing Dispatcher.
//
// It keeps exactly one active mode (HiZ after reset). Bus commands are only
// accepted in their mode and answer NotConfigured otherwise.
type Emulator struct {
	// ReadOnly lists path prefixes rejected by FileWrite.
	ReadOnly []string

	mode   protocol.Mode
	buses  map[protocol.Mode]BusMode
	i2c    *I2cBus
	spi    *SpiBus
	uart   *UartBus
	config map[string]string
	files  map[string][]byte
	lock   sync.Mutex
}

// NewEmulator creates an Emulator in HiZ mode.
func NewEmulator() *Emulator {
	e := &Emulator{
		mode:   protocol.ModeHiZ,
		i2c:    NewI2cBus(),
		spi:    &SpiBus{},
		uart:   NewUartBus(),
		config: make(map[string]string),
		files:  make(map[string][]byte),
	}
	e.buses = map[protocol.Mode]BusMode{
		protocol.ModeI2c:  e.i2c,
		protocol.ModeSpi:  e.spi,
		protocol.ModeUart: e.uart,
	}
	return e
}

// Mode returns the active mode.
func (e *Emulator) Mode() protocol.Mode {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.mode
}

// AttachI2c adds an emulated I2C device.
func (e *Emulator) AttachI2c(addr uint8, regs map[uint8]uint8) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	_, err := e.i2c.Attach(addr, regs)
	return err
}

// PutFile stores a file regardless of ReadOnly.
func (e *Emulator) PutFile(name string, data []byte) error {
	name, err := cleanPath(name)
	if err != nil {
		return err
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	if _, exists := e.files[name]; !exists && len(e.files) >= MaxFiles {
		return ErrOverflow
	}
	e.files[name] = append([]byte(nil), data...)
	return nil
}

// Dispatch implements Dispatcher.
func (e *Emulator) Dispatch(_ context.Context, cmd protocol.Message) protocol.Message {
	e.lock.Lock()
	defer e.lock.Unlock()
	reply, err := e.dispatch(cmd)
	if err != nil {
		glog.V(2).Infof("%v failed: %v", cmd.Tag(), err)
		return protocol.Fail(errorCode(err))
	}
	return protocol.Response{Reply: reply}
}

// errNotConfigured indicates the command requires another mode.
var errNotConfigured = errors.New("not configured")

var (
	errInvalidCommand   = errors.New("invalid command")
	errFileNotFound     = errors.New("file not found")
	errPermissionDenied = errors.New("permission denied")
)

func errorCode(err error) protocol.ErrorCode {
	switch {
	case errors.Is(err, errNotConfigured):
		return protocol.ErrorNotConfigured
	case errors.Is(err, ErrInvalidParameter):
		return protocol.ErrorInvalidParameter
	case errors.Is(err, errFileNotFound):
		return protocol.ErrorFileNotFound
	case errors.Is(err, errPermissionDenied):
		return protocol.ErrorPermissionDenied
	case errors.Is(err, errInvalidCommand):
		return protocol.ErrorInvalidCommand
	case errors.Is(err, ErrNoDevice), errors.Is(err, ErrOverflow):
		return protocol.ErrorBus
	}
	return protocol.ErrorProtocol
}

func (e *Emulator) require(mode protocol.Mode) error {
	if e.mode != mode {
		return errNotConfigured
	}
	return nil
}

func dataReply(data []byte, err error) (protocol.Reply, error) {
	if err != nil {
		return nil, err
	}
	return protocol.NewReplyData(data)
}

func (e *Emulator) dispatch(cmd protocol.Message) (protocol.Reply, error) {
	switch cmd := cmd.(type) {
	case protocol.SetMode:
		return protocol.ReplySuccess{}, e.setMode(cmd.Mode)
	case protocol.GetMode:
		return protocol.ReplyCurrentMode{Mode: e.mode}, nil
	case protocol.I2cScan:
		if err := e.require(protocol.ModeI2c); err != nil {
			return nil, err
		}
		addrs, err := e.i2c.Scan()
		if err != nil {
			return nil, err
		}
		return protocol.NewReplyI2cDevices(addrs)
	case protocol.I2cWrite:
		if err := e.require(protocol.ModeI2c); err != nil {
			return nil, err
		}
		return protocol.ReplySuccess{}, e.i2c.Write(cmd.Addr, cmd.Data())
	case protocol.I2cRead:
		if err := e.require(protocol.ModeI2c); err != nil {
			return nil, err
		}
		return dataReply(e.i2c.Read(cmd.Addr, int(cmd.Len)))
	case protocol.I2cReadRegister:
		if err := e.require(protocol.ModeI2c); err != nil {
			return nil, err
		}
		v, err := e.i2c.ReadRegister(cmd.Addr, cmd.Reg)
		return dataReply([]byte{v}, err)
	case protocol.I2cWriteRegister:
		if err := e.require(protocol.ModeI2c); err != nil {
			return nil, err
		}
		return protocol.ReplySuccess{}, e.i2c.WriteRegister(cmd.Addr, cmd.Reg, cmd.Value)
	case protocol.SpiTransfer:
		if err := e.require(protocol.ModeSpi); err != nil {
			return nil, err
		}
		return protocol.NewReplyData(e.spi.Transfer(cmd.Data()))
	case protocol.UartWrite:
		if err := e.require(protocol.ModeUart); err != nil {
			return nil, err
		}
		return protocol.ReplySuccess{}, e.uart.Write(cmd.Data())
	case protocol.UartRead:
		if err := e.require(protocol.ModeUart); err != nil {
			return nil, err
		}
		n := int(cmd.Len)
		if n > protocol.MaxReplyData {
			n = protocol.MaxReplyData
		}
		return protocol.NewReplyData(e.uart.Read(n))
	case protocol.UartConfig:
		if err := e.require(protocol.ModeUart); err != nil {
			return nil, err
		}
		return protocol.ReplySuccess{}, e.uart.SetBaudrate(cmd.Baudrate)
	case protocol.SetConfig:
		return protocol.ReplySuccess{}, e.setConfig(cmd.Key(), cmd.Value())
	case protocol.GetConfig:
		value, ok := e.config[cmd.Key()]
		if !ok {
			return nil, errNotConfigured
		}
		return protocol.NewReplyConfigValue(value)
	case protocol.FileList:
		names, err := e.listFiles(cmd.Path())
		if err != nil {
			return nil, err
		}
		return protocol.NewReplyFileList(names)
	case protocol.FileRead:
		return dataReply(e.readFile(cmd.Path()))
	case protocol.FileWrite:
		return protocol.ReplySuccess{}, e.writeFile(cmd.Path(), cmd.Data())
	}
	return nil, errInvalidCommand
}

func (e *Emulator) setMode(mode protocol.Mode) error {
	if !mode.IsValid() {
		return ErrInvalidParameter
	}
	if mode == e.mode {
		return nil
	}
	if bus := e.buses[e.mode]; bus != nil {
		if err := bus.Deinit(); err != nil {
			return err
		}
	}
	prev := e.mode
	e.mode = protocol.ModeHiZ
	if bus := e.buses[mode]; bus != nil {
		if err := bus.Init(); err != nil {
			return err
		}
	}
	e.mode = mode
	glog.V(1).Infof("mode %v -> %v", prev, mode)
	return nil
}

func (e *Emulator) setConfig(key, value string) error {
	if key == "" {
		return ErrInvalidParameter
	}
	if _, exists := e.config[key]; !exists && len(e.config) >= MaxConfigEntries {
		return ErrOverflow
	}
	e.config[key] = value
	return nil
}

func cleanPath(name string) (string, error) {
	if !strings.HasPrefix(name, "/") {
		return "", ErrInvalidParameter
	}
	return path.Clean(name), nil
}

func (e *Emulator) listFiles(dir string) ([]string, error) {
	dir, err := cleanPath(dir)
	if err != nil {
		return nil, err
	}
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	entries := make(map[string]bool)
	for name := range e.files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		entry := name[len(prefix):]
		if n := strings.Index(entry, "/"); n >= 0 {
			entry = entry[:n+1]
		}
		entries[entry] = true
	}
	if len(entries) == 0 && dir != "/" {
		return nil, errFileNotFound
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	// keep what fits in one reply frame.
	size, count := 3, 0
	for _, name := range names {
		if len(name) > protocol.MaxFileName {
			continue
		}
		size += 2 + len(name)
		if size > protocol.MaxPayloadSize || count >= protocol.MaxFileEntries {
			glog.Warningf("list %s: truncated to %d entries", dir, count)
			break
		}
		names[count] = name
		count++
	}
	return names[:count], nil
}

func (e *Emulator) readFile(name string) ([]byte, error) {
	name, err := cleanPath(name)
	if err != nil {
		return nil, err
	}
	data, ok := e.files[name]
	if !ok {
		return nil, errFileNotFound
	}
	if len(data) > protocol.MaxReplyData {
		data = data[:protocol.MaxReplyData]
	}
	return append([]byte(nil), data...), nil
}

func (e *Emulator) writeFile(name string, data []byte) error {
	name, err := cleanPath(name)
	if err != nil {
		return err
	}
	for _, prefix := range e.ReadOnly {
		if name == prefix || strings.HasPrefix(name, strings.TrimSuffix(prefix, "/")+"/") {
			return errPermissionDenied
		}
	}
	if _, exists := e.files[name]; !exists && len(e.files) >= MaxFiles {
		return ErrOverflow
	}
	e.files[name] = data
	return nil
}
