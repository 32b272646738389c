package protocol

import (
	"fmt"
	"unicode/utf8"
)

// Tag identifies the case of a Message, it's the ordinal on the wire.
type Tag uint32

// Message tags in wire order. Adding a case requires a Version bump.
const (
	TagSetMode Tag = iota
	TagGetMode
	TagI2cScan
	TagI2cWrite
	TagI2cRead
	TagI2cReadRegister
	TagI2cWriteRegister
	TagSpiTransfer
	TagUartWrite
	TagUartRead
	TagUartConfig
	TagSetConfig
	TagGetConfig
	TagFileList
	TagFileRead
	TagFileWrite
	TagResponse
	TagError

	tagCount
)

var tagNames = [tagCount]string{
	"SetMode", "GetMode", "I2cScan", "I2cWrite", "I2cRead",
	"I2cReadRegister", "I2cWriteRegister", "SpiTransfer",
	"UartWrite", "UartRead", "UartConfig", "SetConfig", "GetConfig",
	"FileList", "FileRead", "FileWrite", "Response", "Error",
}

// String implements fmt.Stringer.
func (t Tag) String() string {
	if t >= tagCount {
		return fmt.Sprintf("tag(%d)", uint32(t))
	}
	return tagNames[t]
}

// Message is the closed set of values exchanged between host and device.
// Only types in this package implement it, and they are passed by value.
type Message interface {
	Tag() Tag
	isMessage()
}

// IsCommand indicates the message is a request from host to device.
func IsCommand(m Message) bool {
	return m != nil && m.Tag() < TagResponse
}

// SetMode switches the active mode.
type SetMode struct {
	Mode Mode
}

// GetMode queries the active mode.
type GetMode struct{}

// I2cScan scans the I2C bus for responding addresses.
type I2cScan struct{}

// I2cWrite writes bytes to an I2C device.
type I2cWrite struct {
	Addr uint8
	data []byte
}

// I2cRead reads Len bytes from an I2C device.
type I2cRead struct {
	Addr uint8
	Len  uint8
}

// I2cReadRegister reads one register of an I2C device.
type I2cReadRegister struct {
	Addr uint8
	Reg  uint8
}

// I2cWriteRegister writes one register of an I2C device.
type I2cWriteRegister struct {
	Addr  uint8
	Reg   uint8
	Value uint8
}

// SpiTransfer clocks data out and returns what is clocked in.
type SpiTransfer struct {
	data []byte
}

// UartWrite transmits bytes.
type UartWrite struct {
	data []byte
}

// UartRead receives up to Len bytes.
type UartRead struct {
	Len uint16
}

// UartConfig sets the baudrate.
type UartConfig struct {
	Baudrate uint32
}

// SetConfig stores a configuration value.
type SetConfig struct {
	key   string
	value string
}

// GetConfig loads a configuration value.
type GetConfig struct {
	key string
}

// FileList lists a directory.
type FileList struct {
	path string
}

// FileRead reads a file.
type FileRead struct {
	path string
}

// FileWrite writes a file.
type FileWrite struct {
	path string
	data []byte
}

// Response carries a successful outcome.
type Response struct {
	Reply Reply
}

// ErrorResponse carries a failed outcome.
type ErrorResponse struct {
	Code ErrorCode
}

// NewI2cWrite creates an I2cWrite.
func NewI2cWrite(addr uint8, data []byte) (I2cWrite, error) {
	b, err := boundedBytes("i2c data", data, MaxI2cData)
	return I2cWrite{Addr: addr, data: b}, err
}

// NewSpiTransfer creates a SpiTransfer.
func NewSpiTransfer(data []byte) (SpiTransfer, error) {
	b, err := boundedBytes("spi data", data, MaxSpiData)
	return SpiTransfer{data: b}, err
}

// NewUartWrite creates a UartWrite.
func NewUartWrite(data []byte) (UartWrite, error) {
	b, err := boundedBytes("uart data", data, MaxUartData)
	return UartWrite{data: b}, err
}

// NewSetConfig creates a SetConfig.
func NewSetConfig(key, value string) (SetConfig, error) {
	if err := checkString("config key", key, MaxConfigKey); err != nil {
		return SetConfig{}, err
	}
	if err := checkString("config value", value, MaxConfigValue); err != nil {
		return SetConfig{}, err
	}
	return SetConfig{key: key, value: value}, nil
}

// NewGetConfig creates a GetConfig.
func NewGetConfig(key string) (GetConfig, error) {
	if err := checkString("config key", key, MaxConfigKey); err != nil {
		return GetConfig{}, err
	}
	return GetConfig{key: key}, nil
}

// NewFileList creates a FileList.
func NewFileList(path string) (FileList, error) {
	if err := checkString("path", path, MaxPath); err != nil {
		return FileList{}, err
	}
	return FileList{path: path}, nil
}

// NewFileRead creates a FileRead.
func NewFileRead(path string) (FileRead, error) {
	if err := checkString("path", path, MaxPath); err != nil {
		return FileRead{}, err
	}
	return FileRead{path: path}, nil
}

// NewFileWrite creates a FileWrite.
func NewFileWrite(path string, data []byte) (FileWrite, error) {
	if err := checkString("path", path, MaxPath); err != nil {
		return FileWrite{}, err
	}
	b, err := boundedBytes("file data", data, MaxFileData)
	if err != nil {
		return FileWrite{}, err
	}
	return FileWrite{path: path, data: b}, nil
}

// Data returns a copy of the data.
func (m I2cWrite) Data() []byte { return cloneBytes(m.data) }

// Data returns a copy of the data.
func (m SpiTransfer) Data() []byte { return cloneBytes(m.data) }

// Data returns a copy of the data.
func (m UartWrite) Data() []byte { return cloneBytes(m.data) }

// Key returns the config key.
func (m SetConfig) Key() string { return m.key }

// Value returns the config value.
func (m SetConfig) Value() string { return m.value }

// Key returns the config key.
func (m GetConfig) Key() string { return m.key }

// Path returns the directory path.
func (m FileList) Path() string { return m.path }

// Path returns the file path.
func (m FileRead) Path() string { return m.path }

// Path returns the file path.
func (m FileWrite) Path() string { return m.path }

// Data returns a copy of the file content.
func (m FileWrite) Data() []byte { return cloneBytes(m.data) }

// Error implements error.
func (m ErrorResponse) Error() string {
	return "device error: " + m.Code.String()
}

// Tag implements Message.
func (SetMode) Tag() Tag          { return TagSetMode }
func (GetMode) Tag() Tag          { return TagGetMode }
func (I2cScan) Tag() Tag          { return TagI2cScan }
func (I2cWrite) Tag() Tag         { return TagI2cWrite }
func (I2cRead) Tag() Tag          { return TagI2cRead }
func (I2cReadRegister) Tag() Tag  { return TagI2cReadRegister }
func (I2cWriteRegister) Tag() Tag { return TagI2cWriteRegister }
func (SpiTransfer) Tag() Tag      { return TagSpiTransfer }
func (UartWrite) Tag() Tag        { return TagUartWrite }
func (UartRead) Tag() Tag         { return TagUartRead }
func (UartConfig) Tag() Tag       { return TagUartConfig }
func (SetConfig) Tag() Tag        { return TagSetConfig }
func (GetConfig) Tag() Tag        { return TagGetConfig }
func (FileList) Tag() Tag         { return TagFileList }
func (FileRead) Tag() Tag         { return TagFileRead }
func (FileWrite) Tag() Tag        { return TagFileWrite }
func (Response) Tag() Tag         { return TagResponse }
func (ErrorResponse) Tag() Tag    { return TagError }

func (SetMode) isMessage()          {}
func (GetMode) isMessage()          {}
func (I2cScan) isMessage()          {}
func (I2cWrite) isMessage()         {}
func (I2cRead) isMessage()          {}
func (I2cReadRegister) isMessage()  {}
func (I2cWriteRegister) isMessage() {}
func (SpiTransfer) isMessage()      {}
func (UartWrite) isMessage()        {}
func (UartRead) isMessage()         {}
func (UartConfig) isMessage()       {}
func (SetConfig) isMessage()        {}
func (GetConfig) isMessage()        {}
func (FileList) isMessage()         {}
func (FileRead) isMessage()         {}
func (FileWrite) isMessage()        {}
func (Response) isMessage()         {}
func (ErrorResponse) isMessage()    {}

// cloneBytes copies b, empty input yields nil so constructed and decoded
// values compare equal.
func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

func boundedBytes(field string, b []byte, capacity int) ([]byte, error) {
	if len(b) > capacity {
		return nil, fmt.Errorf("%s: %d bytes over %d: %w", field, len(b), capacity, ErrCapacityExceeded)
	}
	return cloneBytes(b), nil
}

func checkString(field, s string, capacity int) error {
	if len(s) > capacity {
		return fmt.Errorf("%s: %d bytes over %d: %w", field, len(s), capacity, ErrCapacityExceeded)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s: %w", field, ErrInvalidString)
	}
	return nil
}
