package trigger

import (
	"github.com/qtshock/qtshockd/progress"
)

// Event names published to the UI.
const (
	GSIEventName = "cs-rust-event"
	VREventName  = "vrc-osc-event"
)

func emit(e progress.Emitter, name, message string) {
	if e == nil {
		return
	}
	e.Emit(progress.Event{Name: name, Payload: progress.Payload{Message: message}})
}
