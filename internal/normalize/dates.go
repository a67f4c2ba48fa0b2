// Package normalize turns locale-specific spreadsheet values (Indonesian dates,
// rupiah amounts) into canonical forms.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var months = map[string]time.Month{
	"januari":   time.January,
	"februari":  time.February,
	"maret":     time.March,
	"april":     time.April,
	"mei":       time.May,
	"juni":      time.June,
	"juli":      time.July,
	"agustus":   time.August,
	"september": time.September,
	"oktober":   time.October,
	"november":  time.November,
	"desember":  time.December,
}

var (
	slashDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	longDateRe  = regexp.MustCompile(`^(\d{1,2})\s+([[:alpha:]]+)\s+(\d{4})$`)
	dateTimeRe  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})\s+(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

	// D[ Month[ YYYY]] - D Month YYYY
	rangeRe = regexp.MustCompile(`^(\d{1,2})(?:\s+([[:alpha:]]+))?(?:\s+(\d{4}))?\s*[-–]\s*(\d{1,2})\s+([[:alpha:]]+)\s+(\d{4})$`)
	// Either side in any single-date form, separated by a spaced dash.
	spacedDashRe = regexp.MustCompile(`\s+[-–]\s+`)
)

// DateRange is an inclusive span of days.
type DateRange struct {
	Start civil.Date
	End   civil.Date
}

// MonthFromName looks up an Indonesian month name, ignoring case.
func MonthFromName(name string) (time.Month, bool) {
	m, ok := months[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

// ParseDate accepts "DD/MM/YYYY" and "D MonthName YYYY". It returns false for
// "-", empty strings, unknown shapes and impossible dates such as 31/02/2025.
func ParseDate(s string) (civil.Date, bool) {
	s = collapseSpaces(s)
	if s == "" || s == "-" {
		return civil.Date{}, false
	}

	if m := slashDateRe.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[2])
		return makeDate(atoi(m[3]), time.Month(month), atoi(m[1]))
	}

	if m := longDateRe.FindStringSubmatch(s); m != nil {
		month, ok := MonthFromName(m[2])
		if !ok {
			return civil.Date{}, false
		}
		return makeDate(atoi(m[3]), month, atoi(m[1]))
	}

	return civil.Date{}, false
}

// ParseDateRange accepts "D[ MonthName[ YYYY]] - D MonthName YYYY", a pair of
// single dates joined by " - ", or a single date (start == end). Month and
// year missing from the start are taken from the end; a start month later
// than the end month with no explicit year falls in the previous year.
func ParseDateRange(s string) (DateRange, bool) {
	s = collapseSpaces(s)
	if s == "" || s == "-" {
		return DateRange{}, false
	}

	if d, ok := ParseDate(s); ok {
		return DateRange{Start: d, End: d}, true
	}

	if m := rangeRe.FindStringSubmatch(s); m != nil {
		endMonth, ok := MonthFromName(m[5])
		if !ok {
			return DateRange{}, false
		}
		end, ok := makeDate(atoi(m[6]), endMonth, atoi(m[4]))
		if !ok {
			return DateRange{}, false
		}

		startMonth := endMonth
		if m[2] != "" {
			if startMonth, ok = MonthFromName(m[2]); !ok {
				return DateRange{}, false
			}
		}
		startYear := end.Year
		switch {
		case m[3] != "":
			startYear = atoi(m[3])
		case startMonth > endMonth:
			startYear = end.Year - 1
		}
		start, ok := makeDate(startYear, startMonth, atoi(m[1]))
		if !ok {
			return DateRange{}, false
		}
		return checkedRange(start, end)
	}

	if parts := spacedDashRe.Split(s, -1); len(parts) == 2 {
		start, okStart := ParseDate(parts[0])
		end, okEnd := ParseDate(parts[1])
		if okStart && okEnd {
			return checkedRange(start, end)
		}
	}

	return DateRange{}, false
}

// ParseDateTime accepts form-export timestamps "DD/MM/YYYY HH:MM[:SS]" in loc,
// and falls back to any ParseDate form at midnight.
func ParseDateTime(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	s = collapseSpaces(s)

	if m := dateTimeRe.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[2])
		d, ok := makeDate(atoi(m[3]), time.Month(month), atoi(m[1]))
		if !ok {
			return time.Time{}, false
		}
		hour, minute, sec := atoi(m[4]), atoi(m[5]), 0
		if m[6] != "" {
			sec = atoi(m[6])
		}
		if hour > 23 || minute > 59 || sec > 59 {
			return time.Time{}, false
		}
		return time.Date(d.Year, d.Month, d.Day, hour, minute, sec, 0, loc), true
	}

	if d, ok := ParseDate(s); ok {
		return d.In(loc), true
	}
	return time.Time{}, false
}

func makeDate(year int, month time.Month, day int) (civil.Date, bool) {
	d := civil.Date{Year: year, Month: month, Day: day}
	if !d.IsValid() {
		return civil.Date{}, false
	}
	return d, true
}

func checkedRange(start, end civil.Date) (DateRange, bool) {
	if start.After(end) {
		return DateRange{}, false
	}
	return DateRange{Start: start, End: end}, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
