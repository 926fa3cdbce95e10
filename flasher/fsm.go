package flasher

import (
	"context"

	"github.com/looplab/fsm"
)

// Session states.
const (
	StateConnecting  = "connecting"
	StateConnected   = "connected"
	StateErasing     = "erasing"
	StateErased      = "erased"
	StateProgramming = "programming"
	StateDone        = "done"
	StateFailed      = "failed"
)

// Session events.
const (
	EventSynced  = "synced"
	EventErase   = "erase"
	EventErased  = "erased"
	EventProgram = "program"
	EventFinish  = "finish"
	EventFail    = "fail"
)

func newStateMachine(s *Session) *fsm.FSM {
	events := fsm.Events{
		{Name: EventSynced, Src: []string{StateConnecting}, Dst: StateConnected},
		{Name: EventErase, Src: []string{StateConnected}, Dst: StateErasing},
		{Name: EventErased, Src: []string{StateErasing}, Dst: StateErased},
		{Name: EventProgram, Src: []string{StateErased}, Dst: StateProgramming},
		{Name: EventFinish, Src: []string{StateProgramming}, Dst: StateDone},
		{Name: EventFail, Src: []string{StateConnecting, StateConnected, StateErasing, StateErased, StateProgramming}, Dst: StateFailed},
	}

	callbacks := fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			s.logDebug("session state", "from", e.Src, "to", e.Dst, "event", e.Event)
		},
	}

	return fsm.NewFSM(StateConnecting, events, callbacks)
}

// transition fires event, returning a *StateError when the current state
// does not allow it.
func (s *Session) transition(ctx context.Context, event, operation string) error {
	if !s.fsm.Can(event) {
		return &StateError{Operation: operation, State: s.fsm.Current()}
	}
	return s.fsm.Event(ctx, event)
}

// failed moves the session to StateFailed. It ignores ctx cancellation,
// which would otherwise abort the transition.
func (s *Session) failed(ctx context.Context) {
	if s.fsm.Can(EventFail) {
		_ = s.fsm.Event(context.WithoutCancel(ctx), EventFail)
	}
}

// State returns the current session state.
func (s *Session) State() string {
	return s.fsm.Current()
}
