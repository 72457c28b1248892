package history

import (
	"math"
	"osu-tracker/internal/constants"
	"osu-tracker/internal/domain"
	"time"
)

// maxCutoffDays is the largest offset a time.Duration can hold.
const maxCutoffDays = math.MaxInt64 / int64(constants.Day)

// Cutoff is the instant a baseline must predate for a "days ago" comparison.
// The offset saturates, so the cutoff is never after now.
func Cutoff(now time.Time, days int) time.Time {
	d := int64(days)
	switch {
	case d <= 0:
		return now
	case d > maxCutoffDays:
		d = maxCutoffDays
	}
	return now.Add(-time.Duration(d) * constants.Day)
}

// FindBaseline scans history newest-first and returns the first snapshot of
// mode created strictly before cutoff, i.e. the freshest snapshot that is
// still old enough. history must be in append order.
//
// ErrNoBaseline means nothing of that mode predates cutoff. A baseline with a
// zero playcount is returned together with ErrNoActivity so callers can tell
// "never played this mode back then" apart from "no data that old".
func FindBaseline(history []domain.StatSnapshot, mode domain.Mode, cutoff time.Time) (domain.StatSnapshot, error) {
	for i := len(history) - 1; i >= 0; i-- {
		s := history[i]
		if s.Mode != mode || !s.CreatedAt.Before(cutoff) {
			continue
		}
		if s.Playcount == 0 {
			return s, domain.ErrNoActivity
		}
		return s, nil
	}
	return domain.StatSnapshot{}, domain.ErrNoBaseline
}

// FilterMode keeps history order.
func FilterMode(history []domain.StatSnapshot, mode domain.Mode) []domain.StatSnapshot {
	out := make([]domain.StatSnapshot, 0, len(history))
	for _, s := range history {
		if s.Mode == mode {
			out = append(out, s)
		}
	}
	return out
}
