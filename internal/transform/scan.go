package transform

import (
	"github.com/soltixdb/soltix-transform/internal/series"
)

// Scan runs the named function over cursors. Transforms that can stream
// consume the cursors point by point; all others see each cursor drained
// into a series first. When Scan returns an error, every cursor is closed.
func Scan(qc *QueryContext, name string, cursors []series.Cursor, args []string) ([]*series.Series, error) {
	t, err := Lookup(name)
	if err != nil {
		closeCursors(cursors)
		return nil, err
	}
	if ct, ok := t.(CursorTransform); ok {
		return ct.ApplyCursors(qc, cursors, args)
	}
	in, err := collectAll(cursors)
	if err != nil {
		return nil, err
	}
	return t.Apply(qc, in, args)
}

// ScanPaged evaluates over cursors that may already be partly consumed and
// trims the output to [start, end]. The consumed prefix is reused, never
// fetched again.
func ScanPaged(qc *QueryContext, name string, cursors []series.Cursor, args []string, start, end int64) ([]*series.Series, error) {
	log := qc.Logger()
	for _, c := range cursors {
		next, ok := c.Peek()
		if err := c.Err(); err != nil {
			return nil, err
		}
		if log.DebugEnabled() {
			fields := []interface{}{"series", c.Identity().Identity(), "consumed", len(c.Consumed())}
			if ok {
				fields = append(fields, "next", next.Timestamp)
			}
			log.Debug("Resuming cursor", fields...)
		}
	}

	out, err := Scan(qc.WithRange(start, end), name, cursors, args)
	if err != nil {
		return nil, err
	}
	for i, s := range out {
		out[i] = s.WithDatapoints(s.Datapoints.Subset(start, end))
	}
	return out, nil
}

func collectAll(cursors []series.Cursor) ([]*series.Series, error) {
	out := make([]*series.Series, 0, len(cursors))
	for i, c := range cursors {
		s, err := series.Collect(c)
		if err != nil {
			closeCursors(cursors[i:])
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// closeCursors releases cursors a failed evaluation did not get to.
func closeCursors(cursors []series.Cursor) {
	for _, c := range cursors {
		_ = c.Close()
	}
}
