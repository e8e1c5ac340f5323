package textutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// months maps English and Danish month names (and common abbreviations)
// to month numbers.
var months = map[string]time.Month{
	"january": time.January, "jan": time.January, "januar": time.January,
	"february": time.February, "feb": time.February, "februar": time.February,
	"march": time.March, "mar": time.March, "marts": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May, "maj": time.May,
	"june": time.June, "jun": time.June, "juni": time.June,
	"july": time.July, "jul": time.July, "juli": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October, "okt": time.October, "oktober": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// weekdays maps English and Danish weekday names to time.Weekday.
var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "mandag": time.Monday,
	"tuesday": time.Tuesday, "tirsdag": time.Tuesday,
	"wednesday": time.Wednesday, "onsdag": time.Wednesday,
	"thursday": time.Thursday, "torsdag": time.Thursday,
	"friday": time.Friday, "fredag": time.Friday,
	"saturday": time.Saturday, "lørdag": time.Saturday,
	"sunday": time.Sunday, "søndag": time.Sunday,
}

var (
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})(?:[./-](\d{2,4}))?\b`)
	textualDateRe = regexp.MustCompile(`\b(\d{1,2})\.?(?:st|nd|rd|th)?\s*(?:of\s+)?([a-zæøå]+)(?:\s+(\d{4}))?\b`)
	timeRangeRe   = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*-\s*(\d{1,2})(?::(\d{2}))?\b`)
	clockRe       = regexp.MustCompile(`\b(?:at|kl\.?|klokken)\s*(\d{1,2})(?::(\d{2}))?\b`)
	bareClockRe   = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

// ParseDate extracts the first date phrase from s relative to now and
// returns it as an ISO date (2006-01-02). It understands, in order:
// relative phrases (today/tomorrow, i dag/i morgen/i overmorgen), weekday
// names (next occurrence, English and Danish), textual months ("3rd of
// July 2026", "12. oktober"), and numeric d/m/y dates. Numeric dates are
// day-first; two-digit years become 20xx.
func ParseDate(s string, now time.Time) (string, bool) {
	low := strings.ToLower(s)

	switch {
	case strings.Contains(low, "day after tomorrow"), strings.Contains(low, "i overmorgen"):
		return now.AddDate(0, 0, 2).Format("2006-01-02"), true
	case strings.Contains(low, "tomorrow"), strings.Contains(low, "i morgen"), strings.Contains(low, "imorgen"):
		return now.AddDate(0, 0, 1).Format("2006-01-02"), true
	case strings.Contains(low, "today"), strings.Contains(low, "i dag"), strings.Contains(low, "idag"):
		return now.Format("2006-01-02"), true
	}

	for _, tok := range Tokenize(low) {
		wd, ok := weekdays[tok]
		if !ok {
			continue
		}
		days := (int(wd) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return now.AddDate(0, 0, days).Format("2006-01-02"), true
	}

	if m := textualDateRe.FindStringSubmatch(low); m != nil {
		if month, ok := months[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			year := now.Year()
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
			}
			if d, ok := validDate(year, month, day); ok {
				return d, true
			}
		}
	}

	if m := numericDateRe.FindStringSubmatch(low); m != nil {
		day, _ := strconv.Atoi(m[1])
		monthNum, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		if d, ok := validDate(year, time.Month(monthNum), day); ok {
			return d, true
		}
	}

	return "", false
}

func validDate(year int, month time.Month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// TimeRange holds parsed start and end clock times.
type TimeRange struct {
	StartHour, StartMin int
	EndHour, EndMin     int
}

// ParseTimeRange extracts an explicit "15:00-16:00" style range, a single
// clock time ("at 18:00", "kl. 18"), or a time-of-day word (morning 09:00,
// afternoon 15:00, evening 19:00 and their Danish equivalents). Single
// times yield a one-hour range.
func ParseTimeRange(s string) (TimeRange, bool) {
	low := strings.ToLower(s)

	if m := timeRangeRe.FindStringSubmatch(low); m != nil {
		tr := TimeRange{
			StartHour: atoi(m[1]), StartMin: atoi(m[2]),
			EndHour: atoi(m[3]), EndMin: atoi(m[4]),
		}
		if tr.StartHour < 24 && tr.EndHour < 24 {
			return tr, true
		}
	}

	if m := clockRe.FindStringSubmatch(low); m != nil {
		h, min := atoi(m[1]), atoi(m[2])
		if h < 24 {
			return oneHour(h, min), true
		}
	}
	if m := bareClockRe.FindStringSubmatch(low); m != nil {
		h, min := atoi(m[1]), atoi(m[2])
		if h < 24 && min < 60 {
			return oneHour(h, min), true
		}
	}

	switch {
	case ContainsAny(low, "morning", "morgen", "formiddag"):
		return oneHour(9, 0), true
	case ContainsAny(low, "afternoon", "eftermiddag"):
		return oneHour(15, 0), true
	case ContainsAny(low, "evening", "tonight", "aften"):
		return oneHour(19, 0), true
	}

	return TimeRange{}, false
}

func oneHour(h, min int) TimeRange {
	return TimeRange{StartHour: h, StartMin: min, EndHour: (h + 1) % 24, EndMin: min}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Clock formats a TimeRange start as HH:MM.
func (t TimeRange) Clock() string {
	return fmt.Sprintf("%02d:%02d", t.StartHour, t.StartMin)
}
