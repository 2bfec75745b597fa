package dispatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/roimerbautista/alkaris/internal/logging"
)

// UnmatchedLog appends utterances that matched no synonym, one per line, so
// the synonym table can be grown from real usage.
type UnmatchedLog struct {
	path string
	mu   sync.Mutex
}

// NewUnmatchedLog writes to path, or to the state directory's
// unmatched.txt when path is empty.
func NewUnmatchedLog(path string) (*UnmatchedLog, error) {
	if strings.TrimSpace(path) == "" {
		resolved, err := logging.StatePath("unmatched.txt")
		if err != nil {
			return nil, fmt.Errorf("resolve unmatched log path: %w", err)
		}
		path = resolved
	}
	return &UnmatchedLog{path: path}, nil
}

// Path returns the log file location.
func (l *UnmatchedLog) Path() string {
	return l.path
}

// AppendLine records text. Blank text is ignored.
func (l *UnmatchedLog) AppendLine(text string) error {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if text == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fmt.Errorf("create unmatched log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open unmatched log: %w", err)
	}
	if _, err := f.WriteString(text + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("write unmatched log: %w", err)
	}
	return f.Close()
}
