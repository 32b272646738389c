package protocol

import "errors"

// Codec errors. Returned errors wrap one of these, test with errors.Is.
var (
	// ErrFrameTooShort indicates fewer bytes than the frame requires.
	ErrFrameTooShort = errors.New("frame too short")
	// ErrInvalidFrame indicates bad START or END marker.
	ErrInvalidFrame = errors.New("invalid frame markers")
	// ErrUnsupportedVersion indicates the VERSION byte is not supported.
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
	// ErrCrcMismatch indicates the checksum doesn't match the frame content.
	ErrCrcMismatch = errors.New("crc mismatch")
	// ErrEncodingFailed indicates the value can't be represented on the wire.
	ErrEncodingFailed = errors.New("encoding failed")
	// ErrDecodingFailed indicates the payload doesn't match any known shape.
	ErrDecodingFailed = errors.New("decoding failed")
	// ErrBufferFull indicates the encoded value exceeds the frame capacity.
	ErrBufferFull = errors.New("buffer full")
)

// Construction errors.
var (
	// ErrCapacityExceeded indicates a variable-length field is over its capacity.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrInvalidString indicates a string field is not valid UTF-8.
	ErrInvalidString = errors.New("invalid UTF-8 string")
)
