// Package metadata answers metadata questions about series for filtering
// transforms. Tag checks are answered from the series itself; series and host
// attributes are read from a key/value source (in-memory or etcd).
package metadata

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/soltixdb/soltix-transform/internal/config"
	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/series"
	"github.com/soltixdb/soltix-transform/internal/utils"
)

// Extractor names accepted by IsMetadataEqual.
const (
	ExtractorTag    = "tag"
	ExtractorScope  = "scope"
	ExtractorName   = "name"
	ExtractorUnits  = "units"
	ExtractorSeries = "series"
	ExtractorHost   = "host"
)

// HostTag is the tag that names the host of a series for the host extractor.
const HostTag = "host"

var (
	// ErrUnknownExtractor is returned for an extractor name that is not supported.
	ErrUnknownExtractor = errors.New("unknown metadata extractor")
	// ErrEmptyKey is returned when a lookup needs a key and none was given.
	ErrEmptyKey = errors.New("metadata key is required")
)

// Lookup decides whether a series carries a given metadata value.
type Lookup interface {
	IsMetadataEqual(ctx context.Context, s *series.Series, key, value, extractor string) (bool, error)
}

// Source is the key/value view a lookup reads stored attributes from.
type Source interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// SeriesKey is the source key of a per-series attribute.
func SeriesKey(identity, key string) string {
	return path.Join("series", identity, key)
}

// HostKey is the source key of a per-host attribute.
func HostKey(host, key string) string {
	return path.Join("hosts", host, key)
}

// isEqual implements the extractor dispatch shared by every Lookup.
func isEqual(ctx context.Context, src Source, s *series.Series, key, value, extractor string) (bool, error) {
	if extractor == "" {
		extractor = ExtractorTag
	}

	switch extractor {
	case ExtractorTag:
		if key == "" {
			return false, ErrEmptyKey
		}
		v, ok := s.Tags[key]
		return ok && v == value, nil
	case ExtractorScope:
		return s.Scope == value, nil
	case ExtractorName:
		return s.Name == value, nil
	case ExtractorUnits:
		return s.Units == value, nil
	case ExtractorSeries:
		if key == "" {
			return false, ErrEmptyKey
		}
		return sourceEqual(ctx, src, SeriesKey(s.Identity(), key), value)
	case ExtractorHost:
		if key == "" {
			return false, ErrEmptyKey
		}
		host, ok := s.Tags[HostTag]
		if !ok {
			return false, nil
		}
		return sourceEqual(ctx, src, HostKey(host, key), value)
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownExtractor, extractor)
	}
}

func sourceEqual(ctx context.Context, src Source, key, value string) (bool, error) {
	if src == nil {
		return false, nil
	}
	v, ok, err := src.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return ok && v == value, nil
}

// Service is a Lookup that owns resources.
type Service interface {
	Lookup
	Source
	Close() error
}

// New builds the lookup selected by cfg.Type.
func New(cfg config.MetadataConfig, logger *logging.Logger) (Service, error) {
	switch utils.MetadataType(cfg.Type) {
	case "", utils.MetadataTypeMemory:
		return NewMemoryLookup(), nil
	case utils.MetadataTypeEtcd:
		return NewEtcdLookup(cfg.Etcd, logger)
	default:
		return nil, fmt.Errorf("unsupported metadata type: %s", cfg.Type)
	}
}
