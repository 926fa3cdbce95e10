package trigger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/hypebeast/go-osc/osc"

	"github.com/qtshock/qtshockd/progress"
)

// VR gesture kinds, the third part of a QTS_<idx>_<KIND>_<INTERACTION>
// parameter.
const (
	vrPush = "PUSH"
	vrHit  = "HIT"
)

// PUSH thresholds: fire above, re-arm below.
const (
	PushFire  = 0.8
	PushRearm = 0.2
)

// VR messages.
const (
	MsgVRBadIndex       = "Invalid QTShock OSC data received. Bad invalid shocker index."
	MsgVRBadType        = "Invalid QTShock OSC data received. Bad command type."
	MsgVRBadInteraction = "Invalid QTShock OSC data received. Bad interaction type."
	MsgVRBadValue       = "Invalid QTShock OSC data received. Bad value type."
	MsgVRTriggerFailed  = "Something went wrong when triggering your QTShock."
	MsgVRBundle         = "VRC OSC bundle"
	MsgVRFired          = "Boop"
	MsgVRRearmed        = "Unboop"
	MsgVRHit            = "HIT!!!!!!!!!!!!!!!!!!!!"
	MsgVRListening      = "Listening to %s"
	MsgVRClosed         = "VRC OSC Socket closed"
)

// DefaultOSCAddr is where the VR client sends avatar parameters.
const DefaultOSCAddr = "127.0.0.1:9001"

// VRGate turns avatar parameters into device interactions. A PUSH
// parameter fires once when it rises above PushFire and is re-armed when it
// falls below PushRearm. A HIT parameter fires on every true value.
type VRGate struct {
	Trigger Triggerer
	Emitter progress.Emitter

	mu      sync.Mutex
	blocked bool
}

// Handle processes one decoded message or decode error.
func (g *VRGate) Handle(ctx context.Context, msg *osc.Message, err error) {
	if err != nil {
		if errors.Is(err, ErrOSCBundle) {
			emit(g.Emitter, VREventName, MsgVRBundle)
		}
		return
	}
	if !strings.Contains(msg.Address, "QTS_") {
		return
	}
	emit(g.Emitter, VREventName, fmt.Sprintf("VRC OSC msg | %s: %v", msg.Address, msg.Arguments))

	parts := strings.Split(msg.Address, "_")
	if len(parts) < 4 {
		emit(g.Emitter, VREventName, MsgVRBadType)
		return
	}

	shocker, perr := strconv.ParseUint(parts[1], 10, 8)
	if perr != nil {
		emit(g.Emitter, VREventName, MsgVRBadIndex)
		shocker = 0
	}

	kind := parts[2]
	if kind != vrPush && kind != vrHit {
		emit(g.Emitter, VREventName, MsgVRBadType)
		return
	}

	in, ok := vrInteraction(parts[3])
	if !ok {
		emit(g.Emitter, VREventName, MsgVRBadInteraction)
		return
	}

	var arg any
	if len(msg.Arguments) > 0 {
		arg = msg.Arguments[0]
	}

	switch kind {
	case vrPush:
		v, ok := arg.(float32)
		if !ok {
			emit(g.Emitter, VREventName, MsgVRBadValue)
			return
		}
		g.push(ctx, int(shocker), in, v)
	case vrHit:
		v, ok := arg.(bool)
		if !ok {
			emit(g.Emitter, VREventName, MsgVRBadValue)
			return
		}
		emit(g.Emitter, VREventName, MsgVRHit)
		if v {
			g.fire(ctx, int(shocker), in)
		}
	}
}

func (g *VRGate) push(ctx context.Context, shocker int, in Interaction, v float32) {
	g.mu.Lock()
	fire := v > PushFire && !g.blocked
	if fire {
		g.blocked = true
	}
	rearm := v < PushRearm && g.blocked
	if rearm {
		g.blocked = false
	}
	g.mu.Unlock()

	if fire {
		if g.fire(ctx, shocker, in) {
			emit(g.Emitter, VREventName, MsgVRFired)
		}
	}
	if rearm {
		emit(g.Emitter, VREventName, MsgVRRearmed)
	}
}

func (g *VRGate) fire(ctx context.Context, shocker int, in Interaction) bool {
	if err := g.Trigger.Trigger(ctx, shocker, in); err != nil {
		emit(g.Emitter, VREventName, MsgVRTriggerFailed)
		return false
	}
	return true
}

// Armed reports whether a PUSH will fire.
func (g *VRGate) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.blocked
}

func vrInteraction(s string) (Interaction, bool) {
	switch s {
	case "SHOCK":
		return Shock, true
	case "VIBRATE":
		return Vibrate, true
	case "BEEP":
		return Beep, true
	default:
		return 0, false
	}
}

func upper(in Interaction) string {
	return strings.ToUpper(in.String())
}

// ServeOSC feeds OSC packets received on addr to g until ctx is done.
func ServeOSC(ctx context.Context, addr string, g *VRGate) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer conn.Close()

	emit(g.Emitter, VREventName, fmt.Sprintf(MsgVRListening, conn.LocalAddr()))
	defer emit(g.Emitter, VREventName, MsgVRClosed)

	return ListenOSC(ctx, conn, func(msg *osc.Message, err error) {
		g.Handle(ctx, msg, err)
	})
}
