package speedtest

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"speedlog/internal/models"
)

// FetchMetadata describes the endpoint using the cf-meta-* response headers
func (c *Client) FetchMetadata(ctx context.Context) (models.Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.downURL(0), nil)
	if err != nil {
		return models.Metadata{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return models.Metadata{}, fmt.Errorf("fetch metadata: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return models.Metadata{
		City:    resp.Header.Get("cf-meta-city"),
		Country: resp.Header.Get("cf-meta-country"),
		IP:      resp.Header.Get("cf-meta-ip"),
		ASN:     resp.Header.Get("cf-meta-asn"),
		Colo:    resp.Header.Get("cf-meta-colo"),
	}, nil
}
