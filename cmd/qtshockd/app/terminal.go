package app

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/qtshock/qtshockd/progress"
)

var markup = regexp.MustCompile(`</?[a-z]+>`)

// plain strips the UI color tags from a message.
func plain(msg string) string {
	return markup.ReplaceAllString(msg, "")
}

// terminalEmitter renders progress events. On a terminal it drives a
// progress bar; otherwise it prints one line per event.
type terminalEmitter struct {
	mu  sync.Mutex
	out io.Writer
	bar *progressbar.ProgressBar
}

func newTerminalEmitter(out io.Writer) *terminalEmitter {
	e := &terminalEmitter{out: out}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		e.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionSetDescription("Flashing"),
		)
	}
	return e
}

func (e *terminalEmitter) Emit(ev progress.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	text := plain(ev.Payload.Message)
	if e.bar == nil {
		fmt.Fprintf(e.out, "[%3d%%] %s\n", ev.Payload.Progress, text)
		return
	}
	e.bar.Describe(text)
	_ = e.bar.Set(ev.Payload.Progress)
}

// Finish ends the bar line so the next output starts on a fresh line.
func (e *terminalEmitter) Finish() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.bar != nil {
		_ = e.bar.Finish()
		fmt.Fprintln(e.out)
	}
}
