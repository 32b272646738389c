package protocol

import "fmt"

// ReplyTag identifies the case of a Reply.
type ReplyTag uint32

// Reply tags in wire order.
const (
	ReplyTagSuccess ReplyTag = iota
	ReplyTagData
	ReplyTagI2cDevices
	ReplyTagCurrentMode
	ReplyTagConfigValue
	ReplyTagFileList

	replyTagCount
)

var replyTagNames = [replyTagCount]string{
	"Success", "Data", "I2cDevices", "CurrentMode", "ConfigValue", "FileList",
}

// String implements fmt.Stringer.
func (t ReplyTag) String() string {
	if t >= replyTagCount {
		return fmt.Sprintf("reply(%d)", uint32(t))
	}
	return replyTagNames[t]
}

// Reply is the payload of a Response.
type Reply interface {
	Tag() ReplyTag
	isReply()
}

// ReplySuccess is the plain success reply.
type ReplySuccess struct{}

// ReplyData carries bytes read from a bus or a file.
type ReplyData struct {
	data []byte
}

// ReplyI2cDevices lists responding I2C addresses.
type ReplyI2cDevices struct {
	addrs []uint8
}

// ReplyCurrentMode reports the active mode.
type ReplyCurrentMode struct {
	Mode Mode
}

// ReplyConfigValue carries a configuration value.
type ReplyConfigValue struct {
	value string
}

// ReplyFileList lists directory entries.
type ReplyFileList struct {
	names []string
}

// NewReplyData creates a ReplyData.
func NewReplyData(data []byte) (ReplyData, error) {
	b, err := boundedBytes("reply data", data, MaxReplyData)
	return ReplyData{data: b}, err
}

// NewReplyI2cDevices creates a ReplyI2cDevices.
func NewReplyI2cDevices(addrs []uint8) (ReplyI2cDevices, error) {
	b, err := boundedBytes("i2c devices", addrs, MaxI2cDevices)
	return ReplyI2cDevices{addrs: b}, err
}

// NewReplyConfigValue creates a ReplyConfigValue.
func NewReplyConfigValue(value string) (ReplyConfigValue, error) {
	if err := checkString("config value", value, MaxConfigValue); err != nil {
		return ReplyConfigValue{}, err
	}
	return ReplyConfigValue{value: value}, nil
}

// NewReplyFileList creates a ReplyFileList.
func NewReplyFileList(names []string) (ReplyFileList, error) {
	if len(names) > MaxFileEntries {
		return ReplyFileList{}, fmt.Errorf("file list: %d entries over %d: %w", len(names), MaxFileEntries, ErrCapacityExceeded)
	}
	for _, name := range names {
		if err := checkString("file name", name, MaxFileName); err != nil {
			return ReplyFileList{}, err
		}
	}
	return ReplyFileList{names: cloneStrings(names)}, nil
}

// Data returns a copy of the data.
func (r ReplyData) Data() []byte { return cloneBytes(r.data) }

// Addrs returns a copy of the addresses.
func (r ReplyI2cDevices) Addrs() []uint8 { return cloneBytes(r.addrs) }

// Value returns the config value.
func (r ReplyConfigValue) Value() string { return r.value }

// Names returns a copy of the entries.
func (r ReplyFileList) Names() []string { return cloneStrings(r.names) }

// Tag implements Reply.
func (ReplySuccess) Tag() ReplyTag     { return ReplyTagSuccess }
func (ReplyData) Tag() ReplyTag        { return ReplyTagData }
func (ReplyI2cDevices) Tag() ReplyTag  { return ReplyTagI2cDevices }
func (ReplyCurrentMode) Tag() ReplyTag { return ReplyTagCurrentMode }
func (ReplyConfigValue) Tag() ReplyTag { return ReplyTagConfigValue }
func (ReplyFileList) Tag() ReplyTag    { return ReplyTagFileList }

func (ReplySuccess) isReply()     {}
func (ReplyData) isReply()        {}
func (ReplyI2cDevices) isReply()  {}
func (ReplyCurrentMode) isReply() {}
func (ReplyConfigValue) isReply() {}
func (ReplyFileList) isReply()    {}

// ErrorCode classifies a failed command.
type ErrorCode uint32

// Error codes in wire order.
const (
	ErrorInvalidCommand ErrorCode = iota
	ErrorProtocol
	ErrorBus
	ErrorFileNotFound
	ErrorPermissionDenied
	ErrorTimeout
	ErrorNotConfigured
	ErrorInvalidParameter

	errorCodeCount
)

var errorCodeNames = [errorCodeCount]string{
	"invalid command",
	"protocol error",
	"bus error",
	"file not found",
	"permission denied",
	"timeout",
	"not configured",
	"invalid parameter",
}

// IsValid checks if the code is a known one.
func (c ErrorCode) IsValid() bool {
	return c < errorCodeCount
}

// String implements fmt.Stringer.
func (c ErrorCode) String() string {
	if !c.IsValid() {
		return fmt.Sprintf("error(%d)", uint32(c))
	}
	return errorCodeNames[c]
}

// Success builds the plain success Response.
func Success() Response {
	return Response{Reply: ReplySuccess{}}
}

// Fail builds an ErrorResponse.
func Fail(code ErrorCode) ErrorResponse {
	return ErrorResponse{Code: code}
}

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}
