package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	dmyDatePattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
)

// fallbackLayouts are tried after the ISO and day/month/year forms.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// NormalizeDate parses a classifier-extracted date string. Candidates are
// tried in order: ISO date, day/month/year (regional convention), then a
// short layout list. Anything unparseable defaults to the current time.
func NormalizeDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now()
	}

	if isoDatePattern.MatchString(raw) {
		if t, err := time.Parse("2006-01-02", raw[:10]); err == nil {
			return t
		}
	}

	if m := dmyDatePattern.FindStringSubmatch(raw); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		}
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}

	return time.Now()
}

// NormalizeAmount coerces a classifier-extracted amount into a float. Numeric
// values pass through; strings are stripped down to digits plus the final
// separator as decimal point. Anything else is zero.
func NormalizeAmount(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		return parseAmount(n)
	default:
		return 0
	}
}

func parseAmount(s string) float64 {
	last := strings.LastIndexAny(s, ".,")

	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case i == last:
			b.WriteByte('.')
		}
	}

	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return f
}
