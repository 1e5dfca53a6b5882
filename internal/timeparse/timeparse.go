// Package timeparse converts free-text date and time expressions from chat
// messages into canonical calendar dates and 24-hour clock times.
//
// All date resolution is anchored to a single display timezone supplied by the
// caller. Day boundaries never mix UTC and local time.
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// ISODate is the canonical date layout produced by ParseDate.
	ISODate = "2006-01-02"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"thur":      time.Thursday,
	"thurs":     time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
}

var months = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}

var (
	dayMonthRe = regexp.MustCompile(`\b(\d{1,2})\s*(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b`)
	monthDayRe = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s*(\d{1,2})\b`)
	wordRe     = regexp.MustCompile(`[a-z]+`)
	timeRe     = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
)

// ParseDate resolves a free-text date expression against now in the given
// location. It returns the date in ISO YYYY-MM-DD form, or false when the text
// carries no recognizable date. It never panics on malformed input.
//
// Recognized forms: "today", "tomorrow", weekday names (next strictly-future
// occurrence; naming today's weekday rolls forward a full week), and
// "D MON" / "MON D" with three-letter month abbreviations (dates already past
// roll forward one year).
func ParseDate(text string, now time.Time, loc *time.Location) (string, bool) {
	if loc == nil {
		loc = time.Local
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return "", false
	}
	today := midnight(now.In(loc))

	if strings.Contains(lower, "today") {
		return today.Format(ISODate), true
	}
	if strings.Contains(lower, "tomorrow") {
		return today.AddDate(0, 0, 1).Format(ISODate), true
	}

	for _, word := range wordRe.FindAllString(lower, -1) {
		wd, ok := weekdays[word]
		if !ok {
			continue
		}
		delta := (int(wd) - int(today.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return today.AddDate(0, 0, delta).Format(ISODate), true
	}

	if m := dayMonthRe.FindStringSubmatch(lower); m != nil {
		return resolveCalendarDate(m[1], m[2], today)
	}
	if m := monthDayRe.FindStringSubmatch(lower); m != nil {
		return resolveCalendarDate(m[2], m[1], today)
	}

	return "", false
}

func resolveCalendarDate(dayStr, monthStr string, today time.Time) (string, bool) {
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return "", false
	}
	month, ok := months[monthStr]
	if !ok {
		return "", false
	}

	candidate := time.Date(today.Year(), month, day, 0, 0, 0, 0, today.Location())
	// Reject overflowed days such as 31 Feb, which time.Date normalizes.
	if candidate.Month() != month || candidate.Day() != day {
		return "", false
	}
	if candidate.Before(today) {
		candidate = candidate.AddDate(1, 0, 0)
	}
	return candidate.Format(ISODate), true
}

// ParseTime resolves a free-text time expression into 24-hour "HH:MM" form.
// It accepts "H", "H:MM", optional am/pm, and the words morning (10:00),
// afternoon (14:00), and evening (18:00). Out-of-range values return false.
func ParseTime(text string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return "", false
	}

	switch {
	case strings.Contains(lower, "morning"):
		return "10:00", true
	case strings.Contains(lower, "afternoon"):
		return "14:00", true
	case strings.Contains(lower, "evening"):
		return "18:00", true
	}

	m := timeRe.FindStringSubmatch(lower)
	if m == nil {
		return "", false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil {
			return "", false
		}
	}
	if minute < 0 || minute > 59 {
		return "", false
	}

	switch m[3] {
	case "am":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour < 0 || hour > 23 {
			return "", false
		}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
