// Package normalize parses the loosely formatted dates and counts Korean
// community sites render in their post lists.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	fullDatePattern   = regexp.MustCompile(`^(\d{4})[.\-/](\d{1,2})[.\-/](\d{1,2})\.?$`)
	shortDatePattern  = regexp.MustCompile(`^(\d{2})[.\-/](\d{1,2})[.\-/](\d{1,2})\.?$`)
	monthDayPattern   = regexp.MustCompile(`^(\d{1,2})[.\-/](\d{1,2})\.?$`)
	hoursAgoPattern   = regexp.MustCompile(`^(\d+)\s*시간\s*전$`)
	minutesAgoPattern = regexp.MustCompile(`^(\d+)\s*분\s*전$`)
	daysAgoPattern    = regexp.MustCompile(`^(\d+)\s*일\s*전$`)
	digitPattern      = regexp.MustCompile(`\d+`)
)

// Date parses a raw date string as rendered by Naver/Daum/DCInside list
// pages, resolving relative idioms against ref. It returns nil when the
// string matches no known shape; callers treat nil as "date unknown".
//
// Recognized shapes: "2025.10.31" (also - and / separators), "25.10.31"
// (two digit years are 2000-based), "10.31" (current year), "어제",
// "N시간 전", "N분 전", "N일 전".
func Date(ref time.Time, raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	if m := fullDatePattern.FindStringSubmatch(s); m != nil {
		return buildDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), ref.Location())
	}

	if m := shortDatePattern.FindStringSubmatch(s); m != nil {
		return buildDate(2000+atoi(m[1]), atoi(m[2]), atoi(m[3]), ref.Location())
	}

	if m := monthDayPattern.FindStringSubmatch(s); m != nil {
		return buildDate(ref.Year(), atoi(m[1]), atoi(m[2]), ref.Location())
	}

	if s == "어제" {
		t := ref.AddDate(0, 0, -1)
		return &t
	}

	if m := hoursAgoPattern.FindStringSubmatch(s); m != nil {
		t := ref.Add(-time.Duration(atoi(m[1])) * time.Hour)
		return &t
	}

	if m := minutesAgoPattern.FindStringSubmatch(s); m != nil {
		t := ref.Add(-time.Duration(atoi(m[1])) * time.Minute)
		return &t
	}

	if m := daysAgoPattern.FindStringSubmatch(s); m != nil {
		t := ref.AddDate(0, 0, -atoi(m[1]))
		return &t
	}

	// Time-of-day strings ("14:02") mean "posted today" on these boards.
	if t, err := time.ParseInLocation("15:04", s, ref.Location()); err == nil {
		d := time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour(), t.Minute(), 0, 0, ref.Location())
		return &d
	}

	return nil
}

// Count parses a view or comment count by stripping everything that is not
// a digit. "조회 1,234" is 1234; anything without digits is 0.
func Count(raw string) int {
	digits := digitPattern.FindAllString(raw, -1)
	if len(digits) == 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.Join(digits, ""))
	if err != nil {
		return 0
	}
	return n
}

// WithinRange reports whether t falls inside the inclusive [start, end]
// bounds. A nil t always passes; posts whose date we could not parse are
// kept rather than dropped. Nil bounds are open.
func WithinRange(t *time.Time, start, end *time.Time) bool {
	if t == nil {
		return true
	}
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && t.After(*end) {
		return false
	}
	return true
}

func buildDate(year, month, day int, loc *time.Location) *time.Time {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	return &t
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
