package protocol

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/golang/protobuf/proto"
)

// MarshalMessage encodes a Message into its payload bytes.
//
// The layout is positional: the varint tag, then fields in declaration
// order. u8 is one raw byte, wider integers and enum ordinals are varints,
// bytes and strings are a varint length followed by the raw bytes.
func MarshalMessage(m Message) ([]byte, error) {
	var scratch [MaxPayloadSize]byte
	w := writer{buf: scratch[:0]}
	if err := w.message(m); err != nil {
		return nil, err
	}
	return append([]byte(nil), w.buf...), nil
}

// UnmarshalMessage decodes payload bytes into a Message. The whole input must
// be consumed by exactly one Message.
func UnmarshalMessage(b []byte) (Message, error) {
	r := reader{buf: b}
	m, err := r.message()
	if err != nil {
		return nil, err
	}
	if r.off != len(r.buf) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrDecodingFailed, len(r.buf)-r.off)
	}
	return m, nil
}

// writer appends into a slice whose capacity is the hard limit.
type writer struct {
	buf []byte
	err error
}

func (w *writer) raw(b ...byte) {
	if w.err != nil {
		return
	}
	if len(w.buf)+len(b) > cap(w.buf) {
		w.err = ErrBufferFull
		return
	}
	w.buf = append(w.buf, b...)
}

func (w *writer) uvarint(v uint64) {
	w.raw(proto.EncodeVarint(v)...)
}

func (w *writer) bytes(b []byte) {
	w.uvarint(uint64(len(b)))
	w.raw(b...)
}

func (w *writer) str(s string) {
	w.uvarint(uint64(len(s)))
	if w.err != nil {
		return
	}
	if len(w.buf)+len(s) > cap(w.buf) {
		w.err = ErrBufferFull
		return
	}
	w.buf = append(w.buf, s...)
}

func (w *writer) tag(t Tag) {
	w.uvarint(uint64(t))
}

func encodingFailed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrEncodingFailed, fmt.Sprintf(format, args...))
}

func (w *writer) message(m Message) error {
	switch m := m.(type) {
	case SetMode:
		if !m.Mode.IsValid() {
			return encodingFailed("invalid %v", m.Mode)
		}
		w.tag(TagSetMode)
		w.uvarint(uint64(m.Mode))
	case GetMode:
		w.tag(TagGetMode)
	case I2cScan:
		w.tag(TagI2cScan)
	case I2cWrite:
		w.tag(TagI2cWrite)
		w.raw(m.Addr)
		w.bytes(m.data)
	case I2cRead:
		w.tag(TagI2cRead)
		w.raw(m.Addr, m.Len)
	case I2cReadRegister:
		w.tag(TagI2cReadRegister)
		w.raw(m.Addr, m.Reg)
	case I2cWriteRegister:
		w.tag(TagI2cWriteRegister)
		w.raw(m.Addr, m.Reg, m.Value)
	case SpiTransfer:
		w.tag(TagSpiTransfer)
		w.bytes(m.data)
	case UartWrite:
		w.tag(TagUartWrite)
		w.bytes(m.data)
	case UartRead:
		w.tag(TagUartRead)
		w.uvarint(uint64(m.Len))
	case UartConfig:
		w.tag(TagUartConfig)
		w.uvarint(uint64(m.Baudrate))
	case SetConfig:
		w.tag(TagSetConfig)
		w.str(m.key)
		w.str(m.value)
	case GetConfig:
		w.tag(TagGetConfig)
		w.str(m.key)
	case FileList:
		w.tag(TagFileList)
		w.str(m.path)
	case FileRead:
		w.tag(TagFileRead)
		w.str(m.path)
	case FileWrite:
		w.tag(TagFileWrite)
		w.str(m.path)
		w.bytes(m.data)
	case Response:
		w.tag(TagResponse)
		if err := w.reply(m.Reply); err != nil {
			return err
		}
	case ErrorResponse:
		if !m.Code.IsValid() {
			return encodingFailed("invalid %v", m.Code)
		}
		w.tag(TagError)
		w.uvarint(uint64(m.Code))
	default:
		return encodingFailed("unsupported message %T", m)
	}
	return w.err
}

func (w *writer) reply(r Reply) error {
	switch r := r.(type) {
	case ReplySuccess:
		w.uvarint(uint64(ReplyTagSuccess))
	case ReplyData:
		w.uvarint(uint64(ReplyTagData))
		w.bytes(r.data)
	case ReplyI2cDevices:
		w.uvarint(uint64(ReplyTagI2cDevices))
		w.bytes(r.addrs)
	case ReplyCurrentMode:
		if !r.Mode.IsValid() {
			return encodingFailed("invalid %v", r.Mode)
		}
		w.uvarint(uint64(ReplyTagCurrentMode))
		w.uvarint(uint64(r.Mode))
	case ReplyConfigValue:
		w.uvarint(uint64(ReplyTagConfigValue))
		w.str(r.value)
	case ReplyFileList:
		w.uvarint(uint64(ReplyTagFileList))
		w.uvarint(uint64(len(r.names)))
		for _, name := range r.names {
			w.str(name)
		}
	default:
		return encodingFailed("unsupported reply %T", r)
	}
	return w.err
}

type reader struct {
	buf []byte
	off int
}

func decodingFailed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDecodingFailed, fmt.Sprintf(format, args...))
}

// uvarint reads a minimal varint no larger than max.
func (r *reader) uvarint(max uint64) (uint64, error) {
	x, n := proto.DecodeVarint(r.buf[r.off:])
	if n == 0 {
		return 0, decodingFailed("bad varint at %d", r.off)
	}
	if n != proto.SizeVarint(x) {
		return 0, decodingFailed("overlong varint at %d", r.off)
	}
	if x > max {
		return 0, decodingFailed("value %d over %d at %d", x, max, r.off)
	}
	r.off += n
	return x, nil
}

func (r *reader) u8() (uint8, error) {
	if r.off >= len(r.buf) {
		return 0, decodingFailed("truncated at %d", r.off)
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) u16() (uint16, error) {
	v, err := r.uvarint(math.MaxUint16)
	return uint16(v), err
}

func (r *reader) u32() (uint32, error) {
	v, err := r.uvarint(math.MaxUint32)
	return uint32(v), err
}

// bytes reads a length-prefixed byte sequence of at most capacity bytes.
func (r *reader) bytes(capacity int) ([]byte, error) {
	n, err := r.uvarint(uint64(capacity))
	if err != nil {
		return nil, err
	}
	if uint64(len(r.buf)-r.off) < n {
		return nil, decodingFailed("truncated at %d: want %d bytes", r.off, n)
	}
	b := cloneBytes(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return b, nil
}

func (r *reader) str(capacity int) (string, error) {
	b, err := r.bytes(capacity)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", decodingFailed("invalid UTF-8 at %d", r.off-len(b))
	}
	return string(b), nil
}

func (r *reader) mode() (Mode, error) {
	v, err := r.uvarint(uint64(modeCount - 1))
	return Mode(v), err
}

func (r *reader) message() (Message, error) {
	t, err := r.uvarint(uint64(tagCount - 1))
	if err != nil {
		return nil, err
	}
	switch Tag(t) {
	case TagSetMode:
		mode, err := r.mode()
		return SetMode{Mode: mode}, err
	case TagGetMode:
		return GetMode{}, nil
	case TagI2cScan:
		return I2cScan{}, nil
	case TagI2cWrite:
		var m I2cWrite
		if m.Addr, err = r.u8(); err != nil {
			return nil, err
		}
		if m.data, err = r.bytes(MaxI2cData); err != nil {
			return nil, err
		}
		return m, nil
	case TagI2cRead:
		var m I2cRead
		if m.Addr, err = r.u8(); err != nil {
			return nil, err
		}
		if m.Len, err = r.u8(); err != nil {
			return nil, err
		}
		return m, nil
	case TagI2cReadRegister:
		var m I2cReadRegister
		if m.Addr, err = r.u8(); err != nil {
			return nil, err
		}
		if m.Reg, err = r.u8(); err != nil {
			return nil, err
		}
		return m, nil
	case TagI2cWriteRegister:
		var m I2cWriteRegister
		if m.Addr, err = r.u8(); err != nil {
			return nil, err
		}
		if m.Reg, err = r.u8(); err != nil {
			return nil, err
		}
		if m.Value, err = r.u8(); err != nil {
			return nil, err
		}
		return m, nil
	case TagSpiTransfer:
		data, err := r.bytes(MaxSpiData)
		return SpiTransfer{data: data}, err
	case TagUartWrite:
		data, err := r.bytes(MaxUartData)
		return UartWrite{data: data}, err
	case TagUartRead:
		n, err := r.u16()
		return UartRead{Len: n}, err
	case TagUartConfig:
		baudrate, err := r.u32()
		return UartConfig{Baudrate: baudrate}, err
	case TagSetConfig:
		var m SetConfig
		if m.key, err = r.str(MaxConfigKey); err != nil {
			return nil, err
		}
		if m.value, err = r.str(MaxConfigValue); err != nil {
			return nil, err
		}
		return m, nil
	case TagGetConfig:
		key, err := r.str(MaxConfigKey)
		return GetConfig{key: key}, err
	case TagFileList:
		path, err := r.str(MaxPath)
		return FileList{path: path}, err
	case TagFileRead:
		path, err := r.str(MaxPath)
		return FileRead{path: path}, err
	case TagFileWrite:
		var m FileWrite
		if m.path, err = r.str(MaxPath); err != nil {
			return nil, err
		}
		if m.data, err = r.bytes(MaxFileData); err != nil {
			return nil, err
		}
		return m, nil
	case TagResponse:
		reply, err := r.reply()
		if err != nil {
			return nil, err
		}
		return Response{Reply: reply}, nil
	case TagError:
		code, err := r.uvarint(uint64(errorCodeCount - 1))
		return ErrorResponse{Code: ErrorCode(code)}, err
	}
	// unreachable: uvarint bounds the tag.
	return nil, decodingFailed("unknown tag %d", t)
}

func (r *reader) reply() (Reply, error) {
	t, err := r.uvarint(uint64(replyTagCount - 1))
	if err != nil {
		return nil, err
	}
	switch ReplyTag(t) {
	case ReplyTagSuccess:
		return ReplySuccess{}, nil
	case ReplyTagData:
		data, err := r.bytes(MaxReplyData)
		return ReplyData{data: data}, err
	case ReplyTagI2cDevices:
		addrs, err := r.bytes(MaxI2cDevices)
		return ReplyI2cDevices{addrs: addrs}, err
	case ReplyTagCurrentMode:
		mode, err := r.mode()
		return ReplyCurrentMode{Mode: mode}, err
	case ReplyTagConfigValue:
		value, err := r.str(MaxConfigValue)
		return ReplyConfigValue{value: value}, err
	case ReplyTagFileList:
		count, err := r.uvarint(MaxFileEntries)
		if err != nil {
			return nil, err
		}
		var names []string
		for i := uint64(0); i < count; i++ {
			name, err := r.str(MaxFileName)
			if err != nil {
				return nil, err
			}
			names = append(names, name)
		}
		return ReplyFileList{names: names}, nil
	}
	return nil, decodingFailed("unknown reply tag %d", t)
}
