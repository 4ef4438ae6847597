package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Download is an open file response. Callers must Close it.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Disposition string
	Length      int64
}

// Close releases the response body.
func (d *Download) Close() error {
	return d.Body.Close()
}

// Open GETs path and hands back the raw body instead of decoding JSON. Errors
// follow Do.
func (c *Client) Open(ctx context.Context, path string, opts ...RequestOption) (*Download, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(http.MethodGet, path, 0, start)
		c.logFailure(http.MethodGet, path, err)
		return nil, fmt.Errorf("%w: GET %s: %v", ErrUnavailable, path, err)
	}
	c.observe(http.MethodGet, path, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := newAPIError(http.MethodGet, path, resp.StatusCode, data)
		c.logFailure(http.MethodGet, path, apiErr)
		return nil, apiErr
	}
	return &Download{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Disposition: resp.Header.Get("Content-Disposition"),
		Length:      resp.ContentLength,
	}, nil
}
