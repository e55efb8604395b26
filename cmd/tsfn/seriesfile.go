package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/soltixdb/soltix-transform/internal/models"
)

// seriesFile is the document form of a series file. A bare list of series
// is accepted as well.
type seriesFile struct {
	Series []models.SeriesPayload `yaml:"series"`
}

// readSeriesFile loads series from path, or stdin when path is "-".
func readSeriesFile(path string, stdin io.Reader) ([]models.SeriesPayload, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read series file: %w", err)
	}
	return parseSeries(data)
}

func parseSeries(data []byte) ([]models.SeriesPayload, error) {
	var list []models.SeriesPayload
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, validateSeries(list)
	}

	var doc seriesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse series file: %w", err)
	}
	return doc.Series, validateSeries(doc.Series)
}

func validateSeries(in []models.SeriesPayload) error {
	if len(in) == 0 {
		return fmt.Errorf("series file contains no series")
	}
	for i := range in {
		if err := in[i].Validate(); err != nil {
			return fmt.Errorf("series[%d]: %w", i, err)
		}
	}
	return nil
}
