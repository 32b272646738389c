package protocol

// Version is the protocol version written into every encoded frame.
const Version byte = 0x01

// payloadDecoder decodes the payload of a frame of one protocol version.
type payloadDecoder func(payload []byte) (Message, error)

// decoders lists the supported versions. A new version adds an entry here.
var decoders = map[byte]payloadDecoder{
	Version: UnmarshalMessage,
}

// IsCompatible indicates a frame with VERSION v can be decoded.
func IsCompatible(v byte) bool {
	_, ok := decoders[v]
	return ok
}
