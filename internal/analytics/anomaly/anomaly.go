// Package anomaly scores every point of a series by how anomalous it is.
// Detectors register themselves by name; scores are usually normalized to 0..100.
package anomaly

import (
	"errors"
	"fmt"
	"sort"

	"github.com/soltixdb/soltix-transform/internal/analytics"
	"github.com/soltixdb/soltix-transform/internal/series"
	"github.com/soltixdb/soltix-transform/internal/utils"
)

// ErrInvalidConfig is wrapped by detectors rejecting their configuration
var ErrInvalidConfig = errors.New("invalid detector configuration")

// DetectorConfig holds the parameters a detector may read
type DetectorConfig struct {
	// K is the cluster count for k-means
	K int

	// SeasonPoints is the explicit number of points per season (0 = derive)
	SeasonPoints int

	// SeasonMillis is a season length in milliseconds, used to infer SeasonPoints
	SeasonMillis int64

	// Raw returns unnormalized residuals (STL)
	Raw bool

	// MaxIterations caps iterative algorithms; 0 uses the detector default
	MaxIterations int
}

// DefaultConfig returns default detector configuration
func DefaultConfig() DetectorConfig {
	return DetectorConfig{
		K:             2,
		MaxIterations: 0,
	}
}

// Detector scores a time-ascending, null-free list of points
type Detector interface {
	// Name returns the algorithm name
	Name() string

	// Score returns a score per timestamp. Points may be omitted when no score
	// can be computed for them.
	Score(points []series.Point, config DetectorConfig) (analytics.Scores, error)
}

var detectorRegistry = make(map[string]Detector)

// RegisterDetector adds a detector to the registry
func RegisterDetector(name string, detector Detector) {
	detectorRegistry[name] = detector
}

// GetDetector returns a detector by name
func GetDetector(name string) (Detector, error) {
	if detector, ok := detectorRegistry[name]; ok {
		return detector, nil
	}
	return nil, fmt.Errorf("unknown anomaly detector: %s", name)
}

// ListDetectors returns the registered detector names, sorted
func ListDetectors() []string {
	names := make([]string, 0, len(detectorRegistry))
	for name := range detectorRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SeasonFrequency returns the number of points per season. An explicit point
// count wins; otherwise the season length is divided by the mean sampling interval.
func SeasonFrequency(points []series.Point, config DetectorConfig) int {
	if config.SeasonPoints > 0 {
		return config.SeasonPoints
	}
	if config.SeasonMillis <= 0 || len(points) < 2 {
		return 0
	}
	span := points[len(points)-1].Timestamp - points[0].Timestamp
	interval := float64(span) / float64(len(points)-1)
	if interval <= 0 {
		return 0
	}
	freq := int(float64(config.SeasonMillis)/interval + 0.5)
	if freq < 1 {
		freq = 1
	}
	return freq
}

// ParseSeason accepts either a point count ("24") or a duration ("1d")
func ParseSeason(arg string, config *DetectorConfig) error {
	if n, ok := utils.ParseIntArg(arg); ok {
		if n <= 0 {
			return fmt.Errorf("%w: season must be positive, got %d", ErrInvalidConfig, n)
		}
		config.SeasonPoints = n
		return nil
	}
	ms, err := utils.ParseWindow(arg)
	if err != nil {
		return fmt.Errorf("%w: season: %v", ErrInvalidConfig, err)
	}
	config.SeasonMillis = ms
	return nil
}
