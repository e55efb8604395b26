package utils

import (
	"math"
	"strconv"
	"strings"
)

// ParseFloatArg parses a transform constant, rejecting NaN and infinities.
func ParseFloatArg(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseIntArg parses an integer transform constant.
func ParseIntArg(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseBoolArg parses true/false style transform constants.
func ParseBoolArg(s string) (bool, bool) {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, false
	}
	return b, true
}
