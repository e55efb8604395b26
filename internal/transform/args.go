package transform

import (
	"math"
	"strings"

	"github.com/soltixdb/soltix-transform/internal/utils"
)

// UnionArg, given as the last argument, switches reducers and zippers to a
// full join.
const UnionArg = "UNION"

// stripUnion returns a copy of args without a trailing UNION and whether it
// was present. The caller's slice is never modified.
func stripUnion(args []string) ([]string, bool) {
	n := len(args)
	if n > 0 && strings.EqualFold(strings.TrimSpace(args[n-1]), UnionArg) {
		out := make([]string, n-1)
		copy(out, args[:n-1])
		return out, true
	}
	out := make([]string, n)
	copy(out, args)
	return out, false
}

func checkArity(fn string, args []string, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		switch {
		case min == max:
			return argError(fn, "expects %d argument(s), got %d", min, len(args))
		case max < 0:
			return argError(fn, "expects at least %d argument(s), got %d", min, len(args))
		default:
			return argError(fn, "expects %d to %d arguments, got %d", min, max, len(args))
		}
	}
	return nil
}

func optionalArg(args []string, i int, def string) string {
	if i < len(args) && strings.TrimSpace(args[i]) != "" {
		return strings.TrimSpace(args[i])
	}
	return def
}

func parseFloat(fn, what, s string) (float64, error) {
	v, ok := utils.ParseFloatArg(s)
	if !ok || math.IsNaN(v) {
		return 0, argError(fn, "%s must be a number, got %q", what, s)
	}
	return v, nil
}

func parseCount(fn, what, s string) (int, error) {
	n, ok := utils.ParseIntArg(s)
	if !ok || n < 0 {
		return 0, argError(fn, "%s must be a non-negative integer, got %q", what, s)
	}
	return n, nil
}

func parseBool(fn, what, s string) (bool, error) {
	b, ok := utils.ParseBoolArg(s)
	if !ok {
		return false, argError(fn, "%s must be true or false, got %q", what, s)
	}
	return b, nil
}

func parseWindow(fn, what, s string) (int64, error) {
	ms, err := utils.ParseWindow(s)
	if err != nil {
		return 0, argError(fn, "%s: %v", what, err)
	}
	return ms, nil
}

func parseOffset(fn, what, s string) (int64, error) {
	ms, err := utils.ParseOffset(s)
	if err != nil {
		return 0, argError(fn, "%s: %v", what, err)
	}
	return ms, nil
}

func parseTime(fn, what, s string, qc *QueryContext) (int64, error) {
	ts, err := utils.ParseRelativeTime(s, qc.Start, qc.End)
	if err != nil {
		return 0, argError(fn, "%s: %v", what, err)
	}
	return ts, nil
}

func parseEnum(fn, what, s string, allowed ...string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", argError(fn, "%s must be one of %s, got %q", what, strings.Join(allowed, "|"), s)
}
