// Package transform evaluates named, parameterized functions over series.
//
// Every function is a Transform built from one of a few evaluation shapes:
// mappings apply independently to each series, reducers collapse N series
// into one by timestamp, zippers combine each series with a shared base,
// filters select and order whole series, and unions merge timestamp sets.
// Shapes are generic drivers; functions plug in small stateless policies.
package transform

import (
	"errors"
	"fmt"

	"github.com/soltixdb/soltix-transform/internal/series"
)

var (
	// ErrInvalidArgument marks configuration errors: wrong argument count,
	// unparsable values or unknown enum names.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownFunction is returned for a function name with no transform.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrInsufficientSeries is returned when a transform needs more inputs.
	ErrInsufficientSeries = errors.New("insufficient series")
)

// Transform is one named function.
type Transform interface {
	Name() string
	Apply(qc *QueryContext, in []*series.Series, args []string) ([]*series.Series, error)
}

// CursorTransform is a Transform that can consume cursors point by point
// without materializing its inputs first.
type CursorTransform interface {
	Transform
	ApplyCursors(qc *QueryContext, in []series.Cursor, args []string) ([]*series.Series, error)
}

func argError(fn, format string, a ...interface{}) error {
	return fmt.Errorf("%s: %w: %s", fn, ErrInvalidArgument, fmt.Sprintf(format, a...))
}

func seriesError(fn string, need, got int) error {
	return fmt.Errorf("%s: %w: need at least %d, got %d", fn, ErrInsufficientSeries, need, got)
}
