package utils

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var durationPattern = regexp.MustCompile(`^([+-]?)(\d+)(ms|s|m|h|d|w)$`)

var unitMillis = map[string]int64{
	"ms": 1,
	"s":  MillisPerSecond,
	"m":  MillisPerMinute,
	"h":  MillisPerHour,
	"d":  MillisPerDay,
	"w":  MillisPerWeek,
}

// IsDurationSpec reports whether s has the <integer><unit> form.
func IsDurationSpec(s string) bool {
	return durationPattern.MatchString(strings.TrimSpace(s))
}

// ParseDuration parses a signed <integer><unit> specifier into milliseconds.
func ParseDuration(spec string) (int64, error) {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(spec))
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q: expected <integer><unit> with unit in ms,s,m,h,d,w", spec)
	}
	n, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", spec, err)
	}
	unit := unitMillis[m[3]]
	if n > math.MaxInt64/unit {
		return 0, fmt.Errorf("invalid duration %q: out of range", spec)
	}
	ms := n * unit
	if m[1] == "-" {
		ms = -ms
	}
	return ms, nil
}

// ParseWindow parses a window specifier; it must be positive and unsigned.
func ParseWindow(spec string) (int64, error) {
	spec = strings.TrimSpace(spec)
	if strings.HasPrefix(spec, "-") {
		return 0, fmt.Errorf("invalid window %q: must not be negative", spec)
	}
	ms, err := ParseDuration(spec)
	if err != nil {
		return 0, err
	}
	if ms <= 0 {
		return 0, fmt.Errorf("invalid window %q: must be positive", spec)
	}
	return ms, nil
}

// ParseOffset parses a signed offset specifier; zero is allowed, with or
// without a unit.
func ParseOffset(spec string) (int64, error) {
	if strings.TrimSpace(spec) == "0" {
		return 0, nil
	}
	return ParseDuration(spec)
}

// DurationUnit returns the unit suffix of a valid specifier ("" when invalid).
func DurationUnit(spec string) string {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(spec))
	if m == nil {
		return ""
	}
	return m[3]
}
