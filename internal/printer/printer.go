// Package printer is the boundary to the physical print device. The
// workflow owns sanitization; the client owns transport.
package printer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type Client interface {
	Print(ctx context.Context, lines []string) error
}

// HTTPClient drives a network print server over REST.
type HTTPClient struct {
	client *resty.Client
	id     string
}

func NewHTTPClient(baseURL, printerID string, timeout time.Duration) *HTTPClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2)
	return &HTTPClient{client: c, id: printerID}
}

func (h *HTTPClient) ID() string {
	return h.id
}

type printRequest struct {
	PrinterID string   `json:"printer_id"`
	Lines     []string `json:"lines"`
}

func (h *HTTPClient) Print(ctx context.Context, lines []string) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(printRequest{PrinterID: h.id, Lines: lines}).
		Post("/print")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("print server returned %s", resp.Status())
	}
	return nil
}
