// Package maclog appends router scans to a plain text history file.
package maclog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bavix/dobson/internal/registry"
)

const (
	timeLayout = "2006-01-02T15:04:05"
	fileMode   = 0o644
	dirMode    = 0o755
)

// Logger writes one line per scan: "<minute> <mac> <mac>...".
type Logger struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// New appends to path; now defaults to time.Now.
func New(path string, now func() time.Time) *Logger {
	if now == nil {
		now = time.Now
	}

	return &Logger{path: path, now: now}
}

// Path returns the log file.
func (l *Logger) Path() string { return l.path }

// Line renders one log line for macs at t, seconds zeroed.
func Line(t time.Time, macs []string) string {
	minute := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())

	normalized := make([]string, 0, len(macs))
	for _, mac := range macs {
		if m := registry.NormalizeMAC(mac); m != "" {
			normalized = append(normalized, m)
		}
	}

	return fmt.Sprintf("%s %s\n", minute.Format(timeLayout), strings.Join(normalized, " "))
}

// Append writes the line for macs, creating the file if needed.
func (l *Logger) Append(macs []string) error {
	line := Line(l.now(), macs)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), dirMode); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileMode) //nolint:gosec // path comes from config
	if err != nil {
		return err
	}

	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}
