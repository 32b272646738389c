package protocol

// Frame markers and sizes.
const (
	StartByte byte = 0xAA
	EndByte   byte = 0x55

	// MaxFrameSize is the maximum size of a complete frame.
	MaxFrameSize = 1024
	// HeaderSize covers START, VERSION and LENGTH.
	HeaderSize = 4
	// TrailerSize covers CRC and END.
	TrailerSize = 3
	// MinFrameSize is the size of a frame with an empty payload.
	MinFrameSize = HeaderSize + TrailerSize
	// MaxPayloadSize is the largest payload that fits in a frame.
	MaxPayloadSize = MaxFrameSize - MinFrameSize
)

// Field capacities.
const (
	MaxI2cData     = 256
	MaxSpiData     = 256
	MaxUartData    = 256
	MaxConfigKey   = 32
	MaxConfigValue = 64
	MaxPath        = 128
	MaxFileData    = 512
	MaxReplyData   = 512
	MaxI2cDevices  = 128
	MaxFileName    = 64
	MaxFileEntries = 32
)
