package trigger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

// OSC errors.
var (
	ErrOSCBundle    = errors.New("osc: bundles are not supported")
	ErrOSCMalformed = errors.New("osc: malformed packet")
)

const (
	oscMTU       = 1536
	oscReadPoll  = 250 * time.Millisecond
	bundlePrefix = "#bundle\x00"
)

// DecodeOSC decodes a single OSC message. Bundles are refused with
// ErrOSCBundle.
func DecodeOSC(b []byte) (*osc.Message, error) {
	if bytes.HasPrefix(b, []byte(bundlePrefix)) {
		return nil, ErrOSCBundle
	}
	if len(b) == 0 || b[0] != '/' {
		return nil, fmt.Errorf("%w: no address", ErrOSCMalformed)
	}

	pkt, err := osc.ParsePacket(string(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOSCMalformed, err)
	}
	switch p := pkt.(type) {
	case *osc.Message:
		return p, nil
	case *osc.Bundle:
		return nil, ErrOSCBundle
	default:
		return nil, fmt.Errorf("%w: unknown packet", ErrOSCMalformed)
	}
}

// EncodeOSC encodes a message to addr with the given arguments.
func EncodeOSC(addr string, args ...any) ([]byte, error) {
	return osc.NewMessage(addr, args...).MarshalBinary()
}

// ListenOSC receives OSC packets on conn until ctx is done and passes each
// one to handle. Undecodable packets are passed with a nil message.
func ListenOSC(ctx context.Context, conn net.PacketConn, handle func(*osc.Message, error)) error {
	buf := make([]byte, oscMTU)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := conn.SetReadDeadline(time.Now().Add(oscReadPoll)); err != nil {
			return err
		}
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		handle(DecodeOSC(buf[:n]))
	}
}

// StrengthAddress returns the avatar parameter reporting kind's strength.
func StrengthAddress(kind Interaction) string {
	return fmt.Sprintf("/avatar/parameters/QTS_IN_%s_STRENGTH", upper(kind))
}

// StrengthValue maps a strength in 1..99 to the avatar parameter range.
func StrengthValue(strength int) float32 {
	return float32(strength-1) / 100
}

// FeedbackSender reports strengths back to the VR client.
type FeedbackSender struct {
	Conn net.PacketConn
	To   net.Addr
}

// SendStrength sends kind's strength.
func (f *FeedbackSender) SendStrength(kind Interaction, strength int) error {
	b, err := EncodeOSC(StrengthAddress(kind), StrengthValue(strength))
	if err != nil {
		return err
	}
	_, err = f.Conn.WriteTo(b, f.To)
	return err
}
