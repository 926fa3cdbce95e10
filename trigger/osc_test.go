package trigger

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hypebeast/go-osc/osc"
)

// oscPacket builds a message with raw type tags and argument bytes.
func oscPacket(addr, tags string, args ...byte) []byte {
	pad := func(s string) []byte {
		out := append([]byte(s), 0)
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
		return out
	}
	b := append(pad(addr), pad(tags)...)
	return append(b, args...)
}

func TestEncodeDecodeOSC(t *testing.T) {
	tests := []struct {
		name string
		addr string
		args []any
	}{
		{"float", "/avatar/parameters/QTS_IN_SHOCK_STRENGTH", []any{float32(0.09)}},
		{"bool true", "/avatar/parameters/QTS_0_HIT_SHOCK", []any{true}},
		{"int and false", "/a", []any{int32(7), false}},
		{"string", "/s", []any{"hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkt, err := EncodeOSC(tt.addr, tt.args...)
			if err != nil {
				t.Fatalf("EncodeOSC() error = %v", err)
			}
			if len(pkt)%4 != 0 {
				t.Fatalf("packet length %d not 4-aligned", len(pkt))
			}

			msg, err := DecodeOSC(pkt)
			if err != nil {
				t.Fatalf("DecodeOSC() error = %v", err)
			}
			if msg.Address != tt.addr {
				t.Errorf("Address = %q, want %q", msg.Address, tt.addr)
			}
			if diff := cmp.Diff(tt.args, msg.Arguments); diff != "" {
				t.Errorf("arguments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeOSCRawFloat(t *testing.T) {
	// 0.5 as a big-endian float32.
	msg, err := DecodeOSC(oscPacket("/avatar/parameters/QTS_0_PUSH_BEEP", ",f", 0x3F, 0x00, 0x00, 0x00))
	if err != nil {
		t.Fatalf("DecodeOSC() error = %v", err)
	}
	if diff := cmp.Diff([]any{float32(0.5)}, msg.Arguments); diff != "" {
		t.Errorf("arguments mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeOSCErrors(t *testing.T) {
	tests := []struct {
		name    string
		pkt     []byte
		wantErr error
	}{
		{"bundle", append([]byte("#bundle\x00"), make([]byte, 8)...), ErrOSCBundle},
		{"empty", nil, ErrOSCMalformed},
		{"unterminated", []byte("/abc"), ErrOSCMalformed},
		{"short float", oscPacket("/f", ",f", 0, 0), ErrOSCMalformed},
		{"unknown tag", oscPacket("/q", ",q"), ErrOSCMalformed},
		{"no leading slash", []byte{'x', 0, 0, 0}, ErrOSCMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeOSC(tt.pkt)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("DecodeOSC() = %v, %v, want %v", msg, err, tt.wantErr)
			}
		})
	}
}

func TestStrengthFeedback(t *testing.T) {
	if got := StrengthAddress(Vibrate); got != "/avatar/parameters/QTS_IN_VIBRATE_STRENGTH" {
		t.Errorf("StrengthAddress() = %q", got)
	}
	if got := StrengthValue(11); got != float32(0.1) {
		t.Errorf("StrengthValue(11) = %v, want 0.1", got)
	}

	recv, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer recv.Close()
	send, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer send.Close()

	f := &FeedbackSender{Conn: send, To: recv.LocalAddr()}
	if err := f.SendStrength(Shock, 10); err != nil {
		t.Fatalf("SendStrength() error = %v", err)
	}

	recv.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, _, err := recv.ReadFrom(buf)
	if err != nil {
		t.Fatal(err)
	}
	msg, err := DecodeOSC(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	if msg.Address != StrengthAddress(Shock) || len(msg.Arguments) != 1 || msg.Arguments[0] != StrengthValue(10) {
		t.Errorf("got %+v", msg)
	}
}

func TestListenOSC(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan *osc.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- ListenOSC(ctx, conn, func(msg *osc.Message, err error) {
			if err == nil {
				got <- msg
			}
		})
	}()

	client, err := net.Dial("udp", conn.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()
	pkt, err := EncodeOSC("/avatar/parameters/QTS_0_PUSH_BEEP", float32(0.5))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Write(pkt); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-got:
		if msg.Address != "/avatar/parameters/QTS_0_PUSH_BEEP" {
			t.Errorf("Address = %q", msg.Address)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenOSC() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ListenOSC did not stop")
	}
}
