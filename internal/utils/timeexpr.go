package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRelativeTime resolves a time expression against a query range.
// Accepted forms: "start", "end", "start+1h", "end-30m", "-1h" (relative to end)
// and absolute epoch milliseconds.
func ParseRelativeTime(expr string, start, end int64) (int64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("empty time expression")
	}

	if ms, err := strconv.ParseInt(expr, 10, 64); err == nil {
		return ms, nil
	}

	base := end
	rest := expr
	switch {
	case strings.HasPrefix(expr, "start"):
		base = start
		rest = strings.TrimPrefix(expr, "start")
	case strings.HasPrefix(expr, "end"):
		rest = strings.TrimPrefix(expr, "end")
	}

	if rest == "" {
		return base, nil
	}
	if rest[0] != '+' && rest[0] != '-' {
		return 0, fmt.Errorf("invalid time expression %q", expr)
	}
	offset, err := ParseOffset(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid time expression %q: %w", expr, err)
	}
	return base + offset, nil
}
