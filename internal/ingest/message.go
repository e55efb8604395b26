package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/snappy"

	"github.com/soltixdb/soltix-transform/internal/models"
	"github.com/soltixdb/soltix-transform/internal/series"
)

// Batch is the message body carrying series writes.
type Batch struct {
	Series []models.SeriesPayload `json:"series"`
	SentAt int64                  `json:"sent_at,omitempty"` // epoch milliseconds
}

// snappyMagic prefixes compressed bodies; a JSON body always starts with '{'.
const snappyMagic = 0xff

// Encode serializes series into a message body. Bodies larger than
// compressAbove bytes are snappy compressed; pass a negative value to never
// compress.
func Encode(in []*series.Series, compressAbove int) ([]byte, error) {
	body, err := json.Marshal(Batch{
		Series: models.FromSeriesList(in),
		SentAt: time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}
	if compressAbove < 0 || len(body) <= compressAbove {
		return body, nil
	}
	out := make([]byte, 1, 1+snappy.MaxEncodedLen(len(body)))
	out[0] = snappyMagic
	return append(out, snappy.Encode(nil, body)...), nil
}

// Decode parses a message body produced by Encode.
func Decode(data []byte) ([]*series.Series, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty message")
	}
	if data[0] == snappyMagic {
		raw, err := snappy.Decode(nil, data[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to decompress batch: %w", err)
		}
		data = raw
	}

	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}
	return models.ToSeriesList(b.Series)
}
