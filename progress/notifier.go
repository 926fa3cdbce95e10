package progress

// Notifier receives staged progress. percent is always in [0, 100].
type Notifier interface {
	Stage(text string, percent int)
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(text string, percent int)

// Stage calls f(text, percent).
func (f NotifierFunc) Stage(text string, percent int) {
	f(text, percent)
}

// Nop discards every stage.
type Nop struct{}

func (Nop) Stage(string, int) {}

// OrNop returns n, or Nop when n is nil.
func OrNop(n Notifier) Notifier {
	if n == nil {
		return Nop{}
	}
	return n
}

// Multi fans a stage out to several notifiers in order.
type Multi []Notifier

func (m Multi) Stage(text string, percent int) {
	for _, n := range m {
		if n != nil {
			n.Stage(text, percent)
		}
	}
}

// Clamp limits percent to [0, 100].
func Clamp(percent int) int {
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	default:
		return percent
	}
}
