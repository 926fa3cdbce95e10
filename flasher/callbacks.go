package flasher

// ProgressCallbacks receives progress while an image is written. Init is
// called once per image with its flash address and the number of blocks,
// Update after every block and Finish when the image is complete.
//
// Implementations should return quickly to avoid stalling the transfer.
//
// Example:
//
//	type printer struct{ total int }
//
//	func (p *printer) Init(addr uint32, total int) { p.total = total }
//	func (p *printer) Update(current int)          { fmt.Printf("%d/%d\n", current, p.total) }
//	func (p *printer) Finish()                     { fmt.Println("done") }
type ProgressCallbacks interface {
	Init(addr uint32, total int)
	Update(current int)
	Finish()
}

// Logger is an optional logging interface that can be provided to the session.
// This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	s, err := flasher.Connect(ctx, port, usb, flasher.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
