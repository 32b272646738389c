// Package protocol provides the wire codec between a host and the bus pirate device.
package protocol

// A frame carries exactly one Message:
//
//	START(0xAA) | VERSION | LENGTH(u16 LE) | PAYLOAD | CRC16(u16 LE) | END(0x55)
//
// The payload is the positional binary encoding of the Message (see
// MarshalMessage). The CRC is CRC-16/X-25 over VERSION..PAYLOAD.
//
// Everything in this package is stateless. Encode and decode never log and
// never retry, a failed frame leaves nothing behind.
//
// Producer: host controller and device firmware
// Consumer: host controller and device firmware
