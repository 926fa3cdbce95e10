package trigger

import (
	"fmt"
	"strings"
)

// Interaction is a device action.
type Interaction int

const (
	Shock Interaction = iota
	Vibrate
	Beep
)

func (i Interaction) String() string {
	switch i {
	case Shock:
		return "shock"
	case Vibrate:
		return "vibrate"
	case Beep:
		return "beep"
	default:
		return fmt.Sprintf("Interaction(%d)", int(i))
	}
}

// ParseInteraction accepts shock, vibrate or beep in any case.
func ParseInteraction(s string) (Interaction, error) {
	switch strings.ToLower(s) {
	case "shock":
		return Shock, nil
	case "vibrate":
		return Vibrate, nil
	case "beep":
		return Beep, nil
	default:
		return 0, fmt.Errorf("unknown interaction %q", s)
	}
}
