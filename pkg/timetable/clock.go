package timetable

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock parses "HH:MM" or "HH:MM:SS" into seconds since service-day
// midnight. Hours may exceed 23 for trips running past midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("clock %q: want HH:MM[:SS]", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("clock %q: bad field %q", s, p)
		}
		if i > 0 && n > 59 {
			return 0, fmt.Errorf("clock %q: field %q out of range", s, p)
		}
		v[i] = n
	}
	return v[0]*3600 + v[1]*60 + v[2], nil
}

// FormatClock formats seconds since service-day midnight as HH:MM:SS.
func FormatClock(t int) string {
	sign := ""
	if t < 0 {
		sign = "-"
		t = -t
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, t/3600, t/60%60, t%60)
}
