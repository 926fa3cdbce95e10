package progress

import "sync"

// Messages emitted by a Reporter.
const (
	MsgStarted  = "<bl>Started flashing firmware!</bl>"
	MsgFlashing = "<bl>Flashing firmware...</bl>"
	MsgUnknown  = "<bl>Flashing firmware... (progress unknown)</bl>"
	MsgFinished = "<g>Finished segment!</g>"
)

// startedPercent is reported when a segment starts.
const startedPercent = 10

// Reporter converts Init/Update/Finish progress into Notifier stages. It
// satisfies flasher.ProgressCallbacks.
//
// Within one Init to Finish cycle the reported percentage never decreases,
// never drops below the started percentage, and Finish always reports 100.
type Reporter struct {
	n Notifier

	mu      sync.Mutex
	addr    uint32
	total   int
	percent int
	known   bool
}

// NewReporter returns a Reporter forwarding to n. A nil n discards stages.
func NewReporter(n Notifier) *Reporter {
	return &Reporter{n: OrNop(n)}
}

// Init starts a new cycle for a segment at addr of total units.
func (r *Reporter) Init(addr uint32, total int) {
	r.mu.Lock()
	r.addr = addr
	r.total = total
	r.percent = startedPercent
	r.known = total > 0
	r.mu.Unlock()

	r.n.Stage(MsgStarted, startedPercent)
}

// Update reports current units done. A total of zero is reported as
// unknown progress at the last known percentage.
func (r *Reporter) Update(current int) {
	r.mu.Lock()
	if r.total <= 0 {
		r.known = false
		pct := r.percent
		r.mu.Unlock()
		r.n.Stage(MsgUnknown, pct)
		return
	}

	pct := Clamp(Percent(current, r.total))
	if pct < r.percent {
		pct = r.percent
	}
	r.percent = pct
	r.mu.Unlock()

	r.n.Stage(MsgFlashing, pct)
}

// Finish ends the cycle at 100 percent.
func (r *Reporter) Finish() {
	r.mu.Lock()
	r.percent = 100
	r.known = true
	r.mu.Unlock()

	r.n.Stage(MsgFinished, 100)
}

// Progress returns the last reported percentage and whether progress is
// known.
func (r *Reporter) Progress() (percent int, known bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.percent, r.known
}

// Percent computes floor(current / (total/100)) in integer arithmetic
// without dividing by zero. The result is not clamped.
func Percent(current, total int) int {
	if total <= 0 {
		return 0
	}
	return int(int64(current) * 100 / int64(total))
}
