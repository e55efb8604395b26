package datastore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/soltixdb/soltix-transform/internal/compression"
	"github.com/soltixdb/soltix-transform/internal/config"
	"github.com/soltixdb/soltix-transform/internal/logging"
	"github.com/soltixdb/soltix-transform/internal/series"
	"github.com/soltixdb/soltix-transform/internal/utils"
)

// BlockMillis is the time span covered by one stored block.
const BlockMillis = utils.MillisPerHour

const (
	dataPrefix = "d/"
	metaPrefix = "m/"
)

// BadgerStore keeps series in badger as hourly compressed point blocks.
//
// Key layout:
//
//	d/<identity>\x00<block start, sign-flipped big-endian uint64>  -> encoded block
//	m/<identity>                                                 -> identity JSON
type BadgerStore struct {
	db         *badger.DB
	compressor compression.Compressor
	pageSize   int
	logger     *logging.Logger
	mu         sync.Mutex // serializes read-modify-write of blocks
}

// NewBadgerStore opens (or creates) a badger database.
func NewBadgerStore(cfg config.BadgerConfig, pageSize int, logger *logging.Logger) (*BadgerStore, error) {
	algo, err := compression.ParseAlgorithm(cfg.Codec)
	if err != nil {
		return nil, err
	}
	compressor, err := compression.GetCompressor(algo)
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	if pageSize <= 0 {
		pageSize = series.DefaultPageSize
	}
	if logger == nil {
		logger = logging.Nop()
	}
	logger.Info("Badger datastore opened",
		"path", cfg.Path,
		"in_memory", cfg.InMemory,
		"codec", algo.String())

	return &BadgerStore{
		db:         db,
		compressor: compressor,
		pageSize:   pageSize,
		logger:     logger,
	}, nil
}

func blockStart(ts int64) int64 {
	return utils.FloorDiv(ts, BlockMillis) * BlockMillis
}

func seriesPrefix(identity string) []byte {
	key := make([]byte, 0, len(dataPrefix)+len(identity)+1)
	key = append(key, dataPrefix...)
	key = append(key, identity...)
	return append(key, 0)
}

func blockKey(identity string, start int64) []byte {
	key := seriesPrefix(identity)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(start)^(1<<63))
	return append(key, b[:]...)
}

func metaKey(identity string) []byte {
	return append([]byte(metaPrefix), identity...)
}

// Write merges the datapoints of s into the stored blocks.
func (b *BadgerStore) Write(_ context.Context, s *series.Series) error {
	id := s.Identity()

	blocks := make(map[int64][]series.Point)
	for _, p := range sortedPoints(s) {
		start := blockStart(p.Timestamp)
		blocks[start] = append(blocks[start], p)
	}

	meta, err := json.Marshal(s.WithDatapoints(nil))
	if err != nil {
		return fmt.Errorf("failed to marshal series identity: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(metaKey(id), meta); err != nil {
			return err
		}
		for start, points := range blocks {
			key := blockKey(id, start)
			existing, err := readBlock(txn, key)
			if err != nil {
				return err
			}
			encoded, err := compression.EncodePoints(mergePoints(existing, points), b.compressor)
			if err != nil {
				return fmt.Errorf("failed to encode block: %w", err)
			}
			if err := txn.Set(key, encoded); err != nil {
				return err
			}
		}
		return nil
	})
}

func readBlock(txn *badger.Txn, key []byte) ([]series.Point, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var points []series.Point
	err = item.Value(func(val []byte) error {
		points, err = compression.DecodePoints(val)
		return err
	})
	return points, err
}

func (b *BadgerStore) identityFor(q Query) (*series.Series, error) {
	identity := q.Series()
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(q.Identity()))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, identity)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read series identity: %w", err)
	}
	return identity, nil
}

// page returns up to limit points with after < ts <= end, walking blocks in
// key order starting at the block that holds after+1.
func (b *BadgerStore) page(id string, after, end int64, limit int) ([]series.Point, error) {
	out := make([]series.Point, 0, limit)
	prefix := seriesPrefix(id)

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		first := after
		if first < end {
			first++
		}
		for it.Seek(blockKey(id, blockStart(first))); it.ValidForPrefix(prefix); it.Next() {
			var points []series.Point
			err := it.Item().Value(func(val []byte) error {
				var err error
				points, err = compression.DecodePoints(val)
				return err
			})
			if err != nil {
				return err
			}
			for _, p := range points {
				if p.Timestamp <= after {
					continue
				}
				if p.Timestamp > end || len(out) == limit {
					return nil
				}
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

// FetchCursor implements Fetcher. Pages are read block by block on demand.
func (b *BadgerStore) FetchCursor(ctx context.Context, q Query) (series.Cursor, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	identity, err := b.identityFor(q)
	if err != nil {
		return nil, err
	}
	src := &badgerPages{store: b, id: q.Identity(), end: q.end()}
	return series.NewScanCursor(ctx, identity, src, q.Start, b.pageSize), nil
}

// FetchSeries implements Fetcher.
func (b *BadgerStore) FetchSeries(ctx context.Context, q Query) (*series.Series, error) {
	c, err := b.FetchCursor(ctx, q)
	if err != nil {
		return nil, err
	}
	return fetchAll(c)
}

// Close implements Store.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

type badgerPages struct {
	store *BadgerStore
	id    string
	end   int64
}

func (p *badgerPages) NextPage(ctx context.Context, after int64, limit int) ([]series.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.store.page(p.id, after, p.end, limit)
}
