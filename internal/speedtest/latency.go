package speedtest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// RunLatencyTest performs sampleCount empty downloads and returns each
// round trip (server processing time removed) in milliseconds, plus the mean.
func (c *Client) RunLatencyTest(ctx context.Context, sampleCount int, verbose bool) ([]float64, float64, error) {
	if sampleCount <= 0 {
		return nil, 0, fmt.Errorf("latency sample count must be positive, got %d", sampleCount)
	}

	samples := make([]float64, 0, sampleCount)
	var sum float64
	for i := 0; i < sampleCount; i++ {
		ms, err := c.latencySample(ctx)
		if err != nil {
			return samples, 0, fmt.Errorf("latency sample %d: %w", i+1, err)
		}
		if verbose {
			log.WithFields(log.Fields{"sample": i + 1, "latency_ms": ms}).Info("Latency sample")
		}
		samples = append(samples, ms)
		sum += ms
	}
	return samples, sum / float64(len(samples)), nil
}

func (c *Client) latencySample(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.downURL(0), nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	rtt := time.Since(start) - serverDuration(resp.Header)
	if rtt < 0 {
		rtt = 0
	}
	return float64(rtt.Microseconds()) / 1000.0, nil
}
