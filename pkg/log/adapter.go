package log

// KV adapts a Logger to the message-first Error signature used by the
// flasher package: Error(msg, keysAndValues...).
type KV struct {
	L Logger
}

// Adapt returns a KV around l, or around the global logger when l is nil.
func Adapt(l Logger) *KV {
	return &KV{L: l}
}

func (k *KV) logger() Logger {
	if k.L == nil {
		return std()
	}
	return k.L
}

func (k *KV) Debug(msg string, keysAndValues ...interface{}) {
	k.logger().Debug(msg, keysAndValues...)
}

func (k *KV) Info(msg string, keysAndValues ...interface{}) {
	k.logger().Info(msg, keysAndValues...)
}

// Error logs at ErrorLevel. An error value anywhere in keysAndValues is
// attached as the "error" field.
func (k *KV) Error(msg string, keysAndValues ...interface{}) {
	k.logger().Error(nil, msg, keysAndValues...)
}
