package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/snksoft/crc"
)

// CRC-16/X-25: reflected 0x1021, init 0xFFFF, final xor 0xFFFF.
var crcTable = crc.NewTable(&crc.Parameters{
	Width:      16,
	Polynomial: 0x1021,
	ReflectIn:  true,
	ReflectOut: true,
	Init:       0xFFFF,
	FinalXor:   0xFFFF,
})

// Checksum calculates the frame CRC of b.
func Checksum(b []byte) uint16 {
	return uint16(crcTable.CalculateCRC(b))
}

// EncodeFrame encodes a Message into a complete frame.
func EncodeFrame(m Message) ([]byte, error) {
	return AppendFrame(nil, m)
}

// AppendFrame encodes a Message and appends the frame to dst.
// On failure dst is returned unchanged.
func AppendFrame(dst []byte, m Message) ([]byte, error) {
	var scratch [MaxFrameSize]byte
	n, err := encodeFrame(&scratch, m)
	if err != nil {
		return dst, err
	}
	return append(dst, scratch[:n]...), nil
}

func encodeFrame(buf *[MaxFrameSize]byte, m Message) (int, error) {
	w := writer{buf: buf[HeaderSize:HeaderSize:(MaxFrameSize - TrailerSize)]}
	if err := w.message(m); err != nil {
		return 0, err
	}
	end := HeaderSize + len(w.buf)
	buf[0] = StartByte
	buf[1] = Version
	binary.LittleEndian.PutUint16(buf[2:], uint16(len(w.buf)))
	binary.LittleEndian.PutUint16(buf[end:], Checksum(buf[1:end]))
	buf[end+2] = EndByte
	return end + TrailerSize, nil
}

// DecodeFrame decodes a complete frame into a Message.
//
// The checks run in order and stop at the first failure: size, markers,
// version, declared length, CRC, payload. The version is checked before the
// CRC so a frame from an incompatible peer is reported as such.
func DecodeFrame(frame []byte) (Message, error) {
	if len(frame) < MinFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(frame))
	}
	if frame[0] != StartByte || frame[len(frame)-1] != EndByte {
		return nil, fmt.Errorf("%w: %02x..%02x", ErrInvalidFrame, frame[0], frame[len(frame)-1])
	}
	decode, ok := decoders[frame[1]]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, frame[1])
	}
	end := HeaderSize + int(binary.LittleEndian.Uint16(frame[2:]))
	if len(frame) < end+TrailerSize {
		return nil, fmt.Errorf("%w: length %d over %d bytes", ErrFrameTooShort, end-HeaderSize, len(frame))
	}
	expected := binary.LittleEndian.Uint16(frame[end:])
	if actual := Checksum(frame[1:end]); actual != expected {
		return nil, fmt.Errorf("%w: %04x != %04x", ErrCrcMismatch, actual, expected)
	}
	return decode(frame[HeaderSize:end])
}

// FrameSize returns the total size of the frame starting with header, which
// must hold at least HeaderSize bytes. It returns 0 if header is too short.
func FrameSize(header []byte) int {
	if len(header) < HeaderSize {
		return 0
	}
	return HeaderSize + int(binary.LittleEndian.Uint16(header[2:])) + TrailerSize
}
