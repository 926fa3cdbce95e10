package protocol

import (
	"fmt"
	"io"
)

// Encode wraps a packet in SLIP framing.
//
// Frame structure:
//
//	[END][escaped packet...][END]
func Encode(packet []byte) []byte {
	frame := make([]byte, 0, len(packet)+len(packet)/8+2)
	frame = append(frame, SlipEnd)
	for _, b := range packet {
		switch b {
		case SlipEnd:
			frame = append(frame, SlipEsc, SlipEscEnd)
		case SlipEsc:
			frame = append(frame, SlipEsc, SlipEscEsc)
		default:
			frame = append(frame, b)
		}
	}
	return append(frame, SlipEnd)
}

// FrameReader decodes SLIP frames from a byte stream.
//
// A Read that returns no bytes and no error is treated as an expired read
// deadline, which is how serial ports with a read timeout report silence.
type FrameReader struct {
	r   io.Reader
	buf [512]byte
	pos int
	n   int
}

// NewFrameReader creates a FrameReader on top of r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// Reset drops any buffered bytes.
func (fr *FrameReader) Reset() {
	fr.pos, fr.n = 0, 0
}

// ReadFrame returns the next decoded frame, skipping any garbage before
// the opening END marker.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	for {
		b, err := fr.readByte()
		if err != nil {
			return nil, err
		}
		if b == SlipEnd {
			break
		}
	}

	var frame []byte
	for {
		b, err := fr.readByte()
		if err != nil {
			return nil, err
		}

		switch b {
		case SlipEnd:
			// Back-to-back END markers delimit an empty frame.
			if len(frame) == 0 {
				continue
			}
			return frame, nil
		case SlipEsc:
			next, err := fr.readByte()
			if err != nil {
				return nil, err
			}
			switch next {
			case SlipEscEnd:
				frame = append(frame, SlipEnd)
			case SlipEscEsc:
				frame = append(frame, SlipEsc)
			default:
				return nil, fmt.Errorf("invalid SLIP escape sequence 0x%02X 0x%02X", SlipEsc, next)
			}
		default:
			frame = append(frame, b)
		}
	}
}

func (fr *FrameReader) readByte() (byte, error) {
	if fr.pos >= fr.n {
		n, err := fr.r.Read(fr.buf[:])
		if n == 0 {
			if err == nil {
				return 0, ErrTimeout
			}
			return 0, err
		}
		fr.pos, fr.n = 0, n
	}
	b := fr.buf[fr.pos]
	fr.pos++
	return b, nil
}
