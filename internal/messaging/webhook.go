// Package messaging implements the outbound delivery boundary: an HTTP POST
// per send to the configured WhatsApp gateway webhook.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Payload is the wire format the gateway expects.
type Payload struct {
	CustomerID  string  `json:"customer_id"`
	RemoteJID   string  `json:"remotejid"`
	Name        string  `json:"name"`
	Message     string  `json:"message"`
	ImageBase64 *string `json:"image_base64"`
	HasImage    bool    `json:"has_image"`
	SendID      string  `json:"send_id"`
	CampaignID  string  `json:"campaign_id"`
}

// Sender delivers one payload. Implemented by WebhookClient; the dispatcher
// depends on the interface so tests can substitute a fake.
type Sender interface {
	Send(ctx context.Context, p Payload) error
}

// DeliveryError is a transient delivery failure: non-2xx status, timeout or
// transport error. It is recorded on the send row, never surfaced as fatal.
type DeliveryError struct {
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivery failed: %v", e.Err)
	}
	return fmt.Sprintf("delivery failed: gateway returned status %d", e.StatusCode)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// WebhookClient posts payloads to a fixed webhook URL.
type WebhookClient struct {
	URL    string
	Client *http.Client
}

// NewWebhookClient builds a client with the given per-request timeout.
func NewWebhookClient(url string, timeout time.Duration) *WebhookClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookClient{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

// Send posts the payload. Any 2xx response is success; everything else,
// including timeouts, is a DeliveryError. The response body is drained for
// connection reuse but not otherwise interpreted.
func (c *WebhookClient) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{StatusCode: resp.StatusCode}
	}
	return nil
}

var _ Sender = (*WebhookClient)(nil)
