// Package speedtest measures latency and throughput against a Cloudflare
// style speed test endpoint (__down / __up).
package speedtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"speedlog/internal/models"
)

const (
	DefaultBaseURL = "https://speed.cloudflare.com"

	userAgent = "speedlog/1.0"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrShortBody        = errors.New("short response body")

	// DynamicSizeCutoff stops escalating payload sizes once a size's mean
	// trial takes longer than this.
	DynamicSizeCutoff = 5 * time.Second
)

// Service is the measurement collaborator consumed by the report builder
type Service interface {
	FetchMetadata(ctx context.Context) (models.Metadata, error)
	RunLatencyTest(ctx context.Context, sampleCount int, verbose bool) ([]float64, float64, error)
	RunTests(ctx context.Context, kind models.SampleKind, payloadSizes []int, sampleCount int, verbose, dynamicSizing bool) ([]models.Sample, error)
}

// Client talks to a single speed test endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
	measID     string
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a per-request timeout. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a client for baseURL. Each client gets its own measurement ID.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:              http.ProxyFromEnvironment,
				DisableCompression: true,
			},
		},
		measID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MeasID returns the measurement ID sent with every request
func (c *Client) MeasID() string {
	return c.measID
}

func (c *Client) downURL(bytes int) string {
	q := url.Values{}
	q.Set("bytes", strconv.Itoa(bytes))
	q.Set("measId", c.measID)
	return c.baseURL + "/__down?" + q.Encode()
}

func (c *Client) upURL() string {
	q := url.Values{}
	q.Set("measId", c.measID)
	return c.baseURL + "/__up?" + q.Encode()
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "identity")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s %s: %s", ErrUnexpectedStatus, req.Method, req.URL.Path, resp.Status)
	}
	return resp, nil
}

// serverDuration extracts cfRequestDuration from a Server-Timing header
func serverDuration(h http.Header) time.Duration {
	for _, v := range h.Values("Server-Timing") {
		for _, metric := range strings.Split(v, ",") {
			fields := strings.Split(strings.TrimSpace(metric), ";")
			if len(fields) == 0 || strings.TrimSpace(fields[0]) != "cfRequestDuration" {
				continue
			}
			for _, f := range fields[1:] {
				f = strings.TrimSpace(f)
				if !strings.HasPrefix(f, "dur=") {
					continue
				}
				ms, err := strconv.ParseFloat(strings.TrimPrefix(f, "dur="), 64)
				if err != nil || ms < 0 {
					return 0
				}
				return time.Duration(ms * float64(time.Millisecond))
			}
		}
	}
	return 0
}

// mbps converts a transfer of n bytes over d into megabits per second
func mbps(n int, d time.Duration) float64 {
	secs := d.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(n) * 8 / secs / 1_000_000
}
