package controller

import (
	"bytes"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// lineLogger turns a byte stream into one log record per line.
type lineLogger struct {
	mu     sync.Mutex
	buf    []byte
	logger zerolog.Logger
	level  zerolog.Level
}

// newLineLogger returns a writer logging complete lines at level, tagged with the stream name.
func newLineLogger(logger zerolog.Logger, level zerolog.Level, stream string) io.Writer {
	return &lineLogger{
		logger: logger.With().Str("component", "koboldcpp").Str("stream", stream).Logger(),
		level:  level,
	}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimRight(l.buf[:i], "\r")
		if len(line) > 0 {
			l.logger.WithLevel(l.level).Msg(string(line))
		}
		l.buf = l.buf[i+1:]
	}
	// Compact so the backing array does not grow with total output.
	if len(l.buf) == 0 {
		l.buf = l.buf[:0:0]
	}
	return len(p), nil
}
