package report

import (
	"errors"
	"fmt"
	"math"

	"speedlog/internal/models"
)

// ErrEmptySampleSet is returned when a throughput kind has no samples to average
var ErrEmptySampleSet = errors.New("empty sample set")

// Aggregate reduces raw throughput samples into a SucceededReport. Latency
// samples in the slice are ignored; avgLatency is taken as given.
func Aggregate(metadata string, avgLatency float64, samples []models.Sample) (models.SucceededReport, error) {
	if !finite(avgLatency) {
		return models.SucceededReport{}, fmt.Errorf("latency: average is %v", avgLatency)
	}

	var down, up []float64
	for _, s := range samples {
		switch s.Kind {
		case models.Download:
			down = append(down, s.Magnitude)
		case models.Upload:
			up = append(up, s.Magnitude)
		}
	}

	avgDown, err := mean(models.Download, down)
	if err != nil {
		return models.SucceededReport{}, err
	}
	avgUp, err := mean(models.Upload, up)
	if err != nil {
		return models.SucceededReport{}, err
	}

	return models.SucceededReport{
		Metadata:    metadata,
		AvgLatency:  avgLatency,
		AvgDownload: avgDown,
		AvgUpload:   avgUp,
	}, nil
}

func mean(kind models.SampleKind, values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%s: %w", kind, ErrEmptySampleSet)
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	if !finite(avg) {
		return 0, fmt.Errorf("%s: average is %v", kind, avg)
	}
	return avg, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
