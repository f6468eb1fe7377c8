package extraction

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	isoDatePattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slashDatePattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})$`)
)

// Layouts tried as a last resort for free-form date strings
var looseDateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2006/01/02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

func pad2(value string) string {
	if len(value) == 1 {
		return "0" + value
	}
	return value
}

// NormalizeDate coerces a raw date string to YYYY-MM-DD. ISO dates pass
// through; slash or dash dates are read day-first with two-digit years mapped
// into the 2000s. Anything unrecognized yields "".
func NormalizeDate(value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ""
	}

	if isoDatePattern.MatchString(raw) {
		return raw
	}

	if m := slashDatePattern.FindStringSubmatch(raw); m != nil {
		day, month, year := pad2(m[1]), pad2(m[2]), m[3]
		if len(year) == 2 {
			year = "20" + year
		}
		return fmt.Sprintf("%s-%s-%s", year, month, day)
	}

	for _, layout := range looseDateLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return parsed.UTC().Format("2006-01-02")
		}
	}

	return ""
}
