// Package report turns a probe outcome and raw measurements into the Report
// persisted for a run.
package report

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"speedlog/internal/models"
	"speedlog/internal/speedtest"
)

// MeasurementParams controls how much the measurement service samples
type MeasurementParams struct {
	LatencySamples    int
	PayloadSizes      []int
	ThroughputSamples int
	DynamicSizing     bool
	Verbose           bool
}

// DefaultParams are the measurement defaults used by config.Default
func DefaultParams() MeasurementParams {
	return MeasurementParams{
		LatencySamples:    16,
		PayloadSizes:      []int{1_000_000},
		ThroughputSamples: 16,
	}
}

// Builder produces the report for a run
type Builder struct {
	Service speedtest.Service
	Params  MeasurementParams

	// OnLatency, if set, receives the raw latency samples
	OnLatency func(samples []float64)
}

// Build returns FailedReport for an unreachable probe. Otherwise it measures
// metadata, latency, download and upload in that order and aggregates them.
// Any measurement error aborts the run without a report.
func (b *Builder) Build(ctx context.Context, probe models.PingResult) (models.Report, error) {
	if !probe.Success {
		return models.FailedReport{}, nil
	}

	report, err := b.measure(ctx)
	if err != nil {
		return nil, models.NewRunError(models.StageMeasure, err)
	}
	return report, nil
}

func (b *Builder) measure(ctx context.Context) (models.SucceededReport, error) {
	p := b.Params

	md, err := b.Service.FetchMetadata(ctx)
	if err != nil {
		return models.SucceededReport{}, fmt.Errorf("metadata: %w", err)
	}
	log.WithField("endpoint", md.String()).Debug("Fetched endpoint metadata")

	latencies, avgLatency, err := b.Service.RunLatencyTest(ctx, p.LatencySamples, p.Verbose)
	if err != nil {
		return models.SucceededReport{}, fmt.Errorf("latency test: %w", err)
	}
	if b.OnLatency != nil {
		b.OnLatency(latencies)
	}

	down, err := b.Service.RunTests(ctx, models.Download, p.PayloadSizes, p.ThroughputSamples, p.Verbose, p.DynamicSizing)
	if err != nil {
		return models.SucceededReport{}, fmt.Errorf("download test: %w", err)
	}
	up, err := b.Service.RunTests(ctx, models.Upload, p.PayloadSizes, p.ThroughputSamples, p.Verbose, p.DynamicSizing)
	if err != nil {
		return models.SucceededReport{}, fmt.Errorf("upload test: %w", err)
	}

	samples := make([]models.Sample, 0, len(down)+len(up))
	samples = append(samples, down...)
	samples = append(samples, up...)

	report, err := Aggregate(md.String(), avgLatency, samples)
	if err != nil {
		return models.SucceededReport{}, fmt.Errorf("aggregate: %w", err)
	}

	log.WithFields(log.Fields{
		"avg_latency_ms":    report.AvgLatency,
		"avg_download_mbps": report.AvgDownload,
		"avg_upload_mbps":   report.AvgUpload,
		"samples":           len(samples),
	}).Info("Measurements aggregated")
	return report, nil
}
