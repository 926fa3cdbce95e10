package log

import (
	"bytes"
	"io"
)

// Writer returns an io.Writer that logs every line written to it at
// InfoLevel. It lets line-oriented loggers such as HTTP access logs share
// the structured sink.
func Writer(l Logger) io.Writer {
	return lineWriter{l: l}
}

type lineWriter struct {
	l Logger
}

func (w lineWriter) Write(p []byte) (int, error) {
	logger := w.l
	if logger == nil {
		logger = std()
	}
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) > 0 {
			logger.Info(string(line))
		}
	}
	return len(p), nil
}
