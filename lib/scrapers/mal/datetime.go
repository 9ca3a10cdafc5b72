package mal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order of decreasing specificity; time.Parse
// defaults the missing components to January 1.
var dateLayouts = []string{
	"Jan 2, 2006",
	"Jan, 2006",
	"2006",
}

// ParseDate converts a date like "Apr 3, 1998". A month+year ("Apr, 1994")
// or a bare year ("2003") is accepted too, defaulting the day and month to 1.
func ParseDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, badContent("unable to convert %q to a date", text)
}

var (
	minutesAgoRegex = regexp.MustCompile(`^(\d+) minutes? ago$`)
	hoursAgoRegex   = regexp.MustCompile(`^(\d+) hours? ago$`)
)

const clockLayout = "3:04 PM"

// ParseTimestamp converts a timestamp like "Oct 1, 4:29 AM".
//
// The site renders these either relative ("3 hours ago", "Now",
// "Yesterday, 9:58 AM") or absolute with the year omitted for the current
// year. Relative forms are resolved against relativeTo, which callers must
// supply explicitly when they need determinism. The patterns are tried in
// priority order and the first match wins.
//
// ok is false for the literal "Never", which is an answer, not an error.
func ParseTimestamp(text string, relativeTo time.Time) (t time.Time, ok bool, err error) {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	switch lower {
	case "never":
		return time.Time{}, false, nil
	case "now":
		return relativeTo, true, nil
	}

	if m := minutesAgoRegex.FindStringSubmatch(lower); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		return relativeTo.Add(-time.Duration(minutes) * time.Minute), true, nil
	}
	if m := hoursAgoRegex.FindStringSubmatch(lower); m != nil {
		hours, _ := strconv.Atoi(m[1])
		return relativeTo.Add(-time.Duration(hours) * time.Hour), true, nil
	}

	if rest, found := cutPrefixFold(text, "today, "); found {
		clock, err := time.Parse(clockLayout, rest)
		if err != nil {
			return time.Time{}, false, badContent("unable to read time of day from %q", text)
		}
		return atClock(relativeTo, clock), true, nil
	}
	if rest, found := cutPrefixFold(text, "yesterday, "); found {
		clock, err := time.Parse(clockLayout, rest)
		if err != nil {
			return time.Time{}, false, badContent("unable to read time of day from %q", text)
		}
		return atClock(relativeTo.AddDate(0, 0, -1), clock), true, nil
	}

	// "Oct 1, 4:29 AM": the year is the reference year
	if t, err := time.Parse("Jan 2, "+clockLayout, text); err == nil {
		return time.Date(
			relativeTo.Year(), t.Month(), t.Day(),
			t.Hour(), t.Minute(), 0, 0, relativeTo.Location(),
		), true, nil
	}

	// "Oct 1, 2013 11:04 PM"
	t, perr := time.Parse("Jan 2, 2006 "+clockLayout, text)
	if perr != nil {
		return time.Time{}, false, badContent("unable to convert %q to a timestamp", text)
	}
	return t, true, nil
}

// atClock keeps the calendar date of base and replaces the time of day.
func atClock(base, clock time.Time) time.Time {
	return time.Date(
		base.Year(), base.Month(), base.Day(),
		clock.Hour(), clock.Minute(), 0, 0, base.Location(),
	)
}

func cutPrefixFold(text, prefix string) (string, bool) {
	if len(text) < len(prefix) {
		return text, false
	}
	if !strings.EqualFold(text[:len(prefix)], prefix) {
		return text, false
	}
	return text[len(prefix):], true
}
