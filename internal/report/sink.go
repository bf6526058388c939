// internal/report/sink.go
package report

import (
	"fmt"
	"os"
	"sync"
)

// Sink durably appends generated report lines.
type Sink interface {
	Append(line string) error
}

// FileSink appends report lines to a single file, one line per report. Lines
// are never rewritten or deleted.
type FileSink struct {
	mu   sync.Mutex
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Append(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open report file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("append report line: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync report file: %w", err)
	}
	return nil
}
