package testutils

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogHook records the entries of a logger so tests can look for the
// warnings and errors a command reported.
type LogHook struct {
	levels []logrus.Level

	mu      sync.Mutex
	entries []logrus.Entry
}

var _ logrus.Hook = &LogHook{}

// NewLogHook records entries of the given levels, or of every level when
// none are passed.
func NewLogHook(levels ...logrus.Level) *LogHook {
	if len(levels) == 0 {
		levels = logrus.AllLevels
	}
	return &LogHook{levels: levels}
}

func (h *LogHook) Levels() []logrus.Level {
	return h.levels
}

func (h *LogHook) Fire(e *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, *e)
	return nil
}

// Drain returns the recorded entries and forgets them.
func (h *LogHook) Drain() []logrus.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries := h.entries
	h.entries = nil
	return entries
}

// FindEntry returns the first entry at level whose message contains substr.
func FindEntry(entries []logrus.Entry, level logrus.Level, substr string) (logrus.Entry, bool) {
	for _, e := range entries {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return e, true
		}
	}
	return logrus.Entry{}, false
}

// LogContains reports whether an entry at level mentions substr.
func LogContains(entries []logrus.Entry, level logrus.Level, substr string) bool {
	_, ok := FindEntry(entries, level, substr)
	return ok
}
