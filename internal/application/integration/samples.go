package integration

import (
	"fmt"
	"unicode/utf8"

	"github.com/erp/channelsync/internal/domain/integration"
)

const (
	defaultSampleLimit = 10
	maxSampleLength    = 200
)

// ErrorSamples keeps the first few failure messages of a run, each cut to
// a readable length. Later failures are only counted.
type ErrorSamples struct {
	limit int
	items []string
	total int
}

// NewErrorSamples creates a sample buffer holding at most limit messages.
func NewErrorSamples(limit int) *ErrorSamples {
	if limit <= 0 {
		limit = defaultSampleLimit
	}
	return &ErrorSamples{limit: limit}
}

// Add records a failure of ref.
func (s *ErrorSamples) Add(ref string, err error) {
	msg := err.Error()
	if ref != "" {
		msg = fmt.Sprintf("%s: %s", ref, msg)
	}
	s.AddMessage(msg)
}

// AddMessage records an already formatted failure message.
func (s *ErrorSamples) AddMessage(msg string) {
	s.total++
	if len(s.items) >= s.limit {
		return
	}
	s.items = append(s.items, Truncate(msg, maxSampleLength))
}

// Items returns the recorded samples. The result is never nil.
func (s *ErrorSamples) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Total is the number of failures recorded, sampled or not.
func (s *ErrorSamples) Total() int {
	return s.total
}

// Truncate cuts msg to at most n runes, marking the cut with "...".
func Truncate(msg string, n int) string {
	if utf8.RuneCountInString(msg) <= n {
		return msg
	}
	if n <= 3 {
		return string([]rune(msg)[:n])
	}
	return string([]rune(msg)[:n-3]) + "..."
}

func outcome(failures int) integration.SyncStatus {
	if failures > 0 {
		return integration.SyncStatusPartial
	}
	return integration.SyncStatusSuccess
}
