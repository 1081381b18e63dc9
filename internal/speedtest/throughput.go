package speedtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"speedlog/internal/models"
)

// RunTests runs sampleCount trials for every payload size, smallest first,
// and returns one sample per trial in Mbit/s. With dynamicSizing set, sizes
// larger than the first one whose mean trial exceeds DynamicSizeCutoff are skipped.
func (c *Client) RunTests(ctx context.Context, kind models.SampleKind, payloadSizes []int, sampleCount int, verbose, dynamicSizing bool) ([]models.Sample, error) {
	if kind != models.Download && kind != models.Upload {
		return nil, fmt.Errorf("unsupported test kind %s", kind)
	}
	if sampleCount <= 0 {
		return nil, fmt.Errorf("%s sample count must be positive, got %d", kind, sampleCount)
	}

	sizes := append([]int(nil), payloadSizes...)
	sort.Ints(sizes)

	samples := make([]models.Sample, 0, len(sizes)*sampleCount)
	for _, size := range sizes {
		if size <= 0 {
			return samples, fmt.Errorf("payload size must be positive, got %d", size)
		}

		var total time.Duration
		for i := 0; i < sampleCount; i++ {
			var (
				d   time.Duration
				err error
			)
			if kind == models.Download {
				d, err = c.download(ctx, size)
			} else {
				d, err = c.upload(ctx, size)
			}
			if err != nil {
				return samples, fmt.Errorf("%s trial (%d bytes): %w", kind, size, err)
			}
			total += d

			s := models.Sample{
				Kind:        kind,
				Magnitude:   mbps(size, d),
				PayloadSize: size,
				Duration:    d,
			}
			if verbose {
				log.WithFields(log.Fields{
					"kind":     kind.String(),
					"bytes":    size,
					"mbps":     s.Magnitude,
					"duration": d,
				}).Info("Throughput sample")
			}
			samples = append(samples, s)
		}

		if dynamicSizing && total/time.Duration(sampleCount) > DynamicSizeCutoff {
			log.WithFields(log.Fields{"kind": kind.String(), "bytes": size}).
				Info("Trials exceeded cutoff, skipping larger payloads")
			break
		}
	}
	return samples, nil
}

func (c *Client) download(ctx context.Context, size int) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.downURL(size), nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}
	d := elapsed(start)
	// A truncated body would inflate the rate
	if n != int64(size) {
		return 0, fmt.Errorf("%w: got %d of %d bytes", ErrShortBody, n, size)
	}
	return d, nil
}

func (c *Client) upload(ctx context.Context, size int) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.upURL(), bytes.NewReader(make([]byte, size)))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	start := time.Now()
	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return elapsed(start), nil
}

// elapsed is the wall time since start, never below a microsecond so rates stay finite
func elapsed(start time.Time) time.Duration {
	d := time.Since(start)
	if d < time.Microsecond {
		d = time.Microsecond
	}
	return d
}
