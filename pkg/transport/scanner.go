package transport

import (
	"github.com/robotalks/buspirate.go/pkg/protocol"
)

// ScanState indicates the state of frame delimiting.
type ScanState int

const (
	// ScanStateIdle means waiting for a START byte.
	ScanStateIdle ScanState = iota
	// ScanStateHeader means START is received, waiting for VERSION and LENGTH.
	ScanStateHeader
	// ScanStateBody means LENGTH is known, waiting for the rest of the frame.
	ScanStateBody
)

// IsReceiving indicates a partial frame is buffered.
func (s ScanState) IsReceiving() bool {
	return s != ScanStateIdle
}

// ScanResult indicates the result after one scanning step.
type ScanResult struct {
	State ScanState
	// Frames completed in this step, usually at most one. More are possible
	// after a resync rescans buffered bytes.
	Frames [][]byte
	// Dropped is the number of bytes discarded in this step.
	Dropped int
}

// Scanner delimits frames in a byte stream using the LENGTH field.
//
// A candidate frame starts at a START byte. Once the header is complete the
// total size is known and exactly that many bytes are collected. If the last
// one isn't END, or the size can't be a valid frame, the START byte is
// discarded and the buffered bytes after it are scanned again.
type Scanner struct {
	buf [protocol.MaxFrameSize]byte
	len int
}

// State gets the current scan state.
func (s *Scanner) State() ScanState {
	switch {
	case s.len == 0:
		return ScanStateIdle
	case s.len < protocol.HeaderSize:
		return ScanStateHeader
	default:
		return ScanStateBody
	}
}

// Buffered returns the number of bytes of the partial frame.
func (s *Scanner) Buffered() int {
	return s.len
}

// Reset drops any partial frame.
func (s *Scanner) Reset() (sr ScanResult) {
	sr.Dropped, s.len = s.len, 0
	sr.State = s.State()
	return
}

// Timeout notifies the partial frame timer expires. The START byte of the
// partial frame is dropped and the bytes after it are scanned again, until a
// frame completes or nothing is left. A partial frame following a completed
// one is kept.
func (s *Scanner) Timeout() (sr ScanResult) {
	for s.len > 0 && len(sr.Frames) == 0 {
		s.discard(1, &sr)
		s.process(&sr)
	}
	sr.State = s.State()
	return
}

// Scan consumes one byte.
func (s *Scanner) Scan(b byte) (sr ScanResult) {
	if s.len == 0 && b != protocol.StartByte {
		sr.Dropped = 1
		return
	}
	s.buf[s.len] = b
	s.len++
	s.process(&sr)
	sr.State = s.State()
	return
}

// Feed scans all bytes in p and returns the completed frames.
func (s *Scanner) Feed(p []byte) (frames [][]byte, dropped int) {
	for _, b := range p {
		sr := s.Scan(b)
		frames = append(frames, sr.Frames...)
		dropped += sr.Dropped
	}
	return
}

func (s *Scanner) process(sr *ScanResult) {
	for s.len > 0 {
		if s.buf[0] != protocol.StartByte {
			s.discard(1, sr)
			continue
		}
		if s.len < protocol.HeaderSize {
			return
		}
		size := protocol.FrameSize(s.buf[:protocol.HeaderSize])
		if size > protocol.MaxFrameSize {
			s.discard(1, sr)
			continue
		}
		if s.len < size {
			return
		}
		if s.buf[size-1] != protocol.EndByte {
			s.discard(1, sr)
			continue
		}
		sr.Frames = append(sr.Frames, append([]byte(nil), s.buf[:size]...))
		s.shift(size)
	}
}

func (s *Scanner) discard(n int, sr *ScanResult) {
	sr.Dropped += n
	s.shift(n)
}

func (s *Scanner) shift(n int) {
	copy(s.buf[:], s.buf[n:s.len])
	s.len -= n
}
