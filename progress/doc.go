// Package progress turns flashing progress into tagged status messages.
//
// Messages use the color tags the UI understands: <y>, <bl>, <g> and <r>
// wrapping the text. Every message is paired with a percentage in [0, 100].
//
// A Reporter adapts flasher.ProgressCallbacks to a Notifier:
//
//	rep := progress.NewReporter(notifier)
//	err := session.LoadElfToFlash(ctx, elf, data, rep, xtal)
//
// An EventNotifier forwards stages as "update-progress-text" events to an
// Emitter such as a Broker, which fans them out without blocking.
package progress
