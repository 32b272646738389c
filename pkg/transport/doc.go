// Package transport moves complete frames between a host and a device.
package transport

// A Transport only delimits frames, it never looks into the payload or the
// checksum. Decoding is left to the protocol package.
//
// Byte streams (serial port, pipe, TCP) are delimited by the LENGTH field of
// the frame header, never by scanning for the END marker which may also
// appear in the payload. Message based channels (websocket, MQTT) carry one
// frame per message.
//
// Producer: host controller and device
// Consumer: host controller and device
