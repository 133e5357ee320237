// Package eventlog appends lifecycle and transfer events to a text file,
// one "<timestamp> - <message>" line per event, mirrored to stdout. The
// line format is part of the server's observable behavior; operational
// logging stays on slog.
package eventlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

type Log struct {
	mu     sync.Mutex
	path   string
	mirror io.Writer
	logger *slog.Logger
}

func New(path string, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		path:   path,
		mirror: os.Stdout,
		logger: logger,
	}
}

// Append writes one event line. Failures to open or write the log file are
// reported to the operational logger and otherwise ignored; the log is
// observational and never drives control decisions.
func (l *Log) Append(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("%s - %s\n", time.Now().Format(time.ANSIC), message)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.logger.Error("event log open failed", "path", l.path, "error", err)
	} else {
		if _, err := f.WriteString(line); err != nil {
			l.logger.Error("event log write failed", "path", l.path, "error", err)
		}
		f.Close()
	}

	fmt.Fprint(l.mirror, line)
}

func (l *Log) Appendf(format string, args ...any) {
	l.Append(fmt.Sprintf(format, args...))
}
