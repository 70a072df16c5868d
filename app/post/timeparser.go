package post

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// TimeParser converts the free-text relative timestamps YouTube renders
// ("hace 2 días", "1 hour ago") into absolute instants anchored to a fixed
// offset clock, so results do not depend on the host timezone.
type TimeParser struct {
	loc *time.Location
}

func NewTimeParser(loc *time.Location) *TimeParser {
	return &TimeParser{loc: loc}
}

// Now returns the current instant on the parser's fixed-offset clock
func (p *TimeParser) Now() time.Time {
	return time.Now().In(p.loc)
}

var leadingAmount = regexp.MustCompile(`\d+`)

type timeUnit struct {
	markers []string
	unit    time.Duration
}

// Pattern priority mirrors how the strings are generated: minute, hour,
// day, week, month. Spanish first, English as fallback. Month is
// approximated as 30 days; there is no year-level granularity.
var timeUnits = []timeUnit{
	{[]string{"minuto", "minute"}, time.Minute},
	{[]string{"hora", "hour"}, time.Hour},
	{[]string{"día", "dia", "day"}, 24 * time.Hour},
	{[]string{"semana", "week"}, 7 * 24 * time.Hour},
	{[]string{"mes", "month"}, 30 * 24 * time.Hour},
}

// Parse resolves a relative-time phrase against now. Unparseable input is
// deliberately lenient: it degrades to now with a logged warning instead of
// failing, so a bad timestamp never blocks the pipeline.
func (p *TimeParser) Parse(text string, now time.Time) time.Time {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return now
	}

	if normalized == "ayer" || normalized == "yesterday" {
		return now.Add(-24 * time.Hour)
	}

	for _, tu := range timeUnits {
		for _, marker := range tu.markers {
			if !strings.Contains(normalized, marker) {
				continue
			}

			amount := 1
			if match := leadingAmount.FindString(normalized); match != "" {
				if n, err := strconv.Atoi(match); err == nil && n > 0 {
					amount = n
				}
			}

			return now.Add(-time.Duration(amount) * tu.unit)
		}
	}

	// Scraped text occasionally carries an absolute date instead of a
	// relative phrase
	if t, err := dateparse.ParseIn(text, p.loc); err == nil {
		return t.In(p.loc)
	}

	slog.Warn("Could not parse published time, defaulting to now", "text", text)
	return now
}
