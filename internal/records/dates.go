package records

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The export mixes at least three date shapes plus ISO timestamps. An
// ambiguous DD-MM-YYYY shaped string is interpreted day-first, never
// month-first.
var (
	dayFirstPattern   = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
	isoDatePattern    = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	monthFirstPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// isoFallbackLayouts are tried, in order, when no regex shape matches.
var isoFallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseFlexibleDate parses the date shapes seen in record-store exports:
// DD-MM-YYYY, then YYYY-MM-DD, then MM/DD/YYYY, then ISO timestamps. A shape
// that matches but carries out-of-range components (month 13, February 30)
// falls through to the next format rather than rolling over. Returns ok=false
// when nothing parses; callers treat that as "unknown", never as an error.
func ParseFlexibleDate(text string) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if s == "" || s == NotAvailable {
		return time.Time{}, false
	}

	if m := dayFirstPattern.FindStringSubmatch(s); m != nil {
		if t, ok := civilDate(m[3], m[2], m[1]); ok {
			return t, true
		}
	}
	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		if t, ok := civilDate(m[1], m[2], m[3]); ok {
			return t, true
		}
	}
	if m := monthFirstPattern.FindStringSubmatch(s); m != nil {
		if t, ok := civilDate(m[3], m[1], m[2]); ok {
			return t, true
		}
	}
	for _, layout := range isoFallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func civilDate(year, month, day string) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow; reject anything that moved.
	if t.Year() != y || t.Month() != time.Month(m) || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// AgeInYears computes whole calendar years between a birthdate string and
// now. A missing or unparsable birthdate yields 0, the explicit "unknown"
// sentinel; callers cannot distinguish that from a true newborn. Never
// negative.
func AgeInYears(birthdate string, now time.Time) int {
	birth, ok := ParseFlexibleDate(birthdate)
	if !ok {
		return 0
	}
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
