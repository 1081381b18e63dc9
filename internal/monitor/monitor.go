package monitor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"speedlog/internal/config"
	"speedlog/internal/models"
	"speedlog/internal/report"
	"speedlog/internal/speedtest"
)

// Runner executes one probe → measure → record pass
type Runner struct {
	config  config.Config
	pinger  models.Pinger
	builder *report.Builder
	store   models.ReportStore
	out     io.Writer
	now     func() time.Time
}

// New creates a new Runner. Progress lines are written to out.
func New(cfg config.Config, store models.ReportStore, pinger models.Pinger, service speedtest.Service, out io.Writer) *Runner {
	r := &Runner{
		config: cfg,
		pinger: pinger,
		store:  store,
		out:    out,
		now:    time.Now,
	}
	r.builder = &report.Builder{
		Service: service,
		Params: report.MeasurementParams{
			LatencySamples:    cfg.Measure.LatencySamples,
			PayloadSizes:      cfg.Measure.PayloadSizes,
			ThroughputSamples: cfg.Measure.ThroughputSamples,
			DynamicSizing:     cfg.Measure.DynamicSizing,
			Verbose:           cfg.Verbose,
		},
	}
	if cfg.Verbose {
		r.builder.OnLatency = r.printLatencies
	}
	return r
}

// RunOnce probes, measures when reachable and appends exactly one row. It
// returns the row written; on error nothing was written.
func (r *Runner) RunOnce(ctx context.Context) (models.StoredRow, error) {
	began := time.Now()
	start := r.now().UTC()
	target := r.config.Ping.Target

	r.printf("Pinging %s...\n", target)
	probe, err := r.pinger.Probe(ctx, target, r.config.Ping.Timeout)
	if err != nil {
		return models.StoredRow{}, models.NewRunError(models.StageSetup, fmt.Errorf("probe %s: %w", target, err))
	}

	if probe.Success {
		r.printf("Ping succeeded (%.2f ms), running speed test...\n", probe.RTT)
	} else {
		r.printf("Ping failed: %s\n", probe.ErrorMessage)
		log.WithFields(log.Fields{"target": target, "error": probe.ErrorMessage}).Warn("Target unreachable")
	}

	rep, err := r.builder.Build(ctx, probe)
	if err != nil {
		return models.StoredRow{}, err
	}

	row, err := models.FromReport(rep, start)
	if err != nil {
		return models.StoredRow{}, models.NewRunError(models.StagePersist, err)
	}
	if _, err := r.store.Insert(ctx, rep, start); err != nil {
		return models.StoredRow{}, models.NewRunError(models.StagePersist, err)
	}

	log.WithFields(log.Fields{
		"ping_succeeded": row.PingSucceeded,
		"avg_latency":    row.AvgLatency,
		"avg_down":       row.AvgDown,
		"avg_up":         row.AvgUp,
		"took":           time.Since(began).Round(time.Millisecond),
	}).Info("Report recorded")
	r.printf("Done: recorded %s\n", describe(row))
	return row, nil
}

func (r *Runner) printLatencies(samples []float64) {
	parts := make([]string, len(samples))
	for i, s := range samples {
		parts[i] = fmt.Sprintf("%.2f", s)
	}
	r.printf("Latency samples (ms): [%s]\n", strings.Join(parts, ", "))
}

func (r *Runner) printf(format string, args ...any) {
	if r.out != nil {
		fmt.Fprintf(r.out, format, args...)
	}
}

func describe(row models.StoredRow) string {
	if !row.PingSucceeded {
		return "unreachable"
	}
	return fmt.Sprintf("latency=%.2fms down=%.2fMbps up=%.2fMbps (%s)",
		row.AvgLatency, row.AvgDown, row.AvgUp, row.Metadata)
}
