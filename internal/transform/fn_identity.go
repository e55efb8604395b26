package transform

import (
	"regexp"
	"sort"
	"strings"

	"github.com/soltixdb/soltix-transform/internal/series"
)

// identityTransform returns its inputs unchanged.
type identityTransform struct{}

func (identityTransform) Name() string { return "IDENTITY" }

func (identityTransform) Apply(_ *QueryContext, in []*series.Series, args []string) ([]*series.Series, error) {
	if err := checkArity("IDENTITY", args, 0, 0); err != nil {
		return nil, err
	}
	out := make([]*series.Series, len(in))
	copy(out, in)
	return out, nil
}

// ApplyCursors drains each cursor inside its lock so a cursor shared with
// another reader is never advanced concurrently.
func (identityTransform) ApplyCursors(_ *QueryContext, in []series.Cursor, args []string) ([]*series.Series, error) {
	if err := checkArity("IDENTITY", args, 0, 0); err != nil {
		closeCursors(in)
		return nil, err
	}
	out := make([]*series.Series, 0, len(in))
	for i, c := range in {
		sc, ok := c.(*series.SyncCursor)
		if !ok {
			sc = series.NewSyncCursor(c)
		}
		var s *series.Series
		err := sc.Do(func(cur series.Cursor) error {
			var err error
			s, err = series.Collect(cur)
			return err
		})
		if err != nil {
			closeCursors(in[i:])
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// aliasMapping renames series. ALIAS(name, literal|regex[, scope])
type aliasMapping struct{}

func (aliasMapping) PreservesNulls() bool { return true }

func (aliasMapping) Prepare(_ *QueryContext, args []string) (SeriesMapper, error) {
	const fn = "ALIAS"
	if err := checkArity(fn, args, 2, 3); err != nil {
		return nil, err
	}
	kind, err := parseEnum(fn, "type", args[1], "literal", "regex")
	if err != nil {
		return nil, err
	}
	scopeArg := optionalArg(args, 2, "")

	if kind == "literal" {
		return func(s *series.Series) (*series.Series, error) {
			out := s.Clone()
			out.Name = args[0]
			if scopeArg != "" {
				out.Scope = scopeArg
			}
			return out, nil
		}, nil
	}

	nameRe, nameRepl, err := parseSubstitution(fn, args[0])
	if err != nil {
		return nil, err
	}
	var scopeRe *regexp.Regexp
	var scopeRepl string
	if scopeArg != "" {
		if scopeRe, scopeRepl, err = parseSubstitution(fn, scopeArg); err != nil {
			return nil, err
		}
	}
	return func(s *series.Series) (*series.Series, error) {
		out := s.Clone()
		out.Name = nameRe.ReplaceAllString(s.Name, nameRepl)
		if scopeRe != nil {
			out.Scope = scopeRe.ReplaceAllString(s.Scope, scopeRepl)
		}
		return out, nil
	}, nil
}

// parseSubstitution splits "pattern/replacement" at the last slash.
func parseSubstitution(fn, arg string) (*regexp.Regexp, string, error) {
	i := strings.LastIndex(arg, "/")
	if i < 0 {
		return nil, "", argError(fn, "regex alias must be pattern/replacement, got %q", arg)
	}
	re, err := regexp.Compile(arg[:i])
	if err != nil {
		return nil, "", argError(fn, "invalid pattern %q: %v", arg[:i], err)
	}
	return re, arg[i+1:], nil
}

// aliasByTagMapping sets the display name from tag values.
type aliasByTagMapping struct{}

func (aliasByTagMapping) PreservesNulls() bool { return true }

func (aliasByTagMapping) Prepare(_ *QueryContext, args []string) (SeriesMapper, error) {
	keys := make([]string, 0, len(args))
	for _, k := range args {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return func(s *series.Series) (*series.Series, error) {
		use := keys
		if len(use) == 0 {
			use = make([]string, 0, len(s.Tags))
			for k := range s.Tags {
				use = append(use, k)
			}
			sort.Strings(use)
		}
		parts := make([]string, 0, len(use))
		for _, k := range use {
			if v, ok := s.Tags[k]; ok {
				parts = append(parts, v)
			}
		}
		out := s.Clone()
		out.DisplayName = strings.Join(parts, ",")
		return out, nil
	}, nil
}

// joinTransform concatenates its inputs.
type joinTransform struct{}

func (joinTransform) Name() string { return "JOIN" }

func (joinTransform) Apply(_ *QueryContext, in []*series.Series, args []string) ([]*series.Series, error) {
	if err := checkArity("JOIN", args, 0, 0); err != nil {
		return nil, err
	}
	out := make([]*series.Series, 0, len(in))
	return append(out, in...), nil
}

// limitTransform keeps the first n series in input order.
type limitTransform struct{}

func (limitTransform) Name() string { return "LIMIT" }

func (limitTransform) Apply(_ *QueryContext, in []*series.Series, args []string) ([]*series.Series, error) {
	const fn = "LIMIT"
	if err := checkArity(fn, args, 1, 1); err != nil {
		return nil, err
	}
	n, err := parseCount(fn, "limit", args[0])
	if err != nil {
		return nil, err
	}
	if n > len(in) {
		n = len(in)
	}
	out := make([]*series.Series, n)
	copy(out, in[:n])
	return out, nil
}
