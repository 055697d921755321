// Package slots decides whether an appointment time is free for a date and specialty.
package slots

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medbook/internal/models"

	"github.com/rs/zerolog"
)

var timeLayouts = []string{"3:04 PM", "3:04PM", "15:04"}

// ToMinutes parses a 12-hour ("10:30 AM") or 24-hour ("14:00") time into minutes since midnight.
func ToMinutes(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}

// FromMinutes formats minutes since midnight as zero-padded "HH:MM".
func FromMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func within(a, b int) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < models.SlotDurationMinutes
}

// Overlaps reports whether any parseable booked time is closer than the slot duration to requested.
// Malformed booked values are ignored.
func Overlaps(requested int, booked []string) bool {
	for _, b := range booked {
		m, ok := ToMinutes(b)
		if ok && within(requested, m) {
			return true
		}
	}
	return false
}

// Conflicts is the commit-time rule: only an identical stored time blocks the slot.
// "10:00" and "10:00 AM" name the same minute and match; 10:15 next to 10:00 does not.
func Conflicts(requested string, booked []string) bool {
	norm := strings.ToUpper(strings.TrimSpace(requested))
	m, parsed := ToMinutes(requested)
	for _, b := range booked {
		if strings.ToUpper(strings.TrimSpace(b)) == norm {
			return true
		}
		if !parsed {
			continue
		}
		if bm, ok := ToMinutes(b); ok && bm == m {
			return true
		}
	}
	return false
}

// BookedTimesLookup returns the stored times for an exact date and specialty.
type BookedTimesLookup interface {
	BookedTimes(ctx context.Context, date, specialty string) ([]string, error)
}

type Checker struct {
	lookup BookedTimesLookup
	logger zerolog.Logger
}

func NewChecker(lookup BookedTimesLookup, logger *zerolog.Logger) *Checker {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "slots").Logger()
	}
	return &Checker{lookup: lookup, logger: l}
}

// IsAvailable is the advisory check. A requested time that does not parse is reported as available.
func (c *Checker) IsAvailable(ctx context.Context, date, timeStr, specialty string) (bool, error) {
	requested, ok := ToMinutes(timeStr)
	if !ok {
		return true, nil
	}
	booked, err := c.booked(ctx, date, specialty)
	if err != nil {
		return false, err
	}
	return !Overlaps(requested, booked), nil
}

// SuggestAlternatives tries -30 then +30 minutes and returns the free candidates in that order.
func (c *Checker) SuggestAlternatives(ctx context.Context, date, timeStr, specialty string, limit int) ([]string, error) {
	requested, ok := ToMinutes(timeStr)
	if !ok || limit <= 0 {
		return nil, nil
	}
	booked, err := c.booked(ctx, date, specialty)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, offset := range []int{-models.SlotDurationMinutes, models.SlotDurationMinutes} {
		if len(out) >= limit {
			break
		}
		candidate := requested + offset
		if candidate < 0 || candidate > models.LastSlotMinutes {
			continue
		}
		if !Overlaps(candidate, booked) {
			out = append(out, FromMinutes(candidate))
		}
	}
	return out, nil
}

func (c *Checker) booked(ctx context.Context, date, specialty string) ([]string, error) {
	booked, err := c.lookup.BookedTimes(ctx, date, specialty)
	if err != nil {
		return nil, fmt.Errorf("lookup booked times: %w", err)
	}
	for _, b := range booked {
		if _, ok := ToMinutes(b); !ok {
			c.logger.Warn().Str("date", date).Str("specialty", specialty).Str("time", b).
				Msg("skipping malformed stored time")
		}
	}
	return booked, nil
}
