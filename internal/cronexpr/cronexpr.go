package cronexpr

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"pushflow/internal/domain"
)

// Decode parses a standard five-field cron pattern and returns the earliest
// instant strictly after ref that satisfies it. Pure: same inputs always
// yield the same output.
func Decode(pattern string, ref time.Time) (time.Time, error) {
	if strings.TrimSpace(pattern) == "" {
		return time.Time{}, domain.Invalidf("cron pattern is empty")
	}
	sched, err := cron.ParseStandard(pattern)
	if err != nil {
		return time.Time{}, domain.Invalidf("cron pattern %q: %v", pattern, err)
	}
	next := sched.Next(ref)
	// The parser accepts patterns that can never fire (e.g. "0 0 30 2 *");
	// Next reports those as the zero time after its bounded search.
	if next.IsZero() {
		return time.Time{}, domain.Invalidf("cron pattern %q has no future occurrence", pattern)
	}
	return next, nil
}
