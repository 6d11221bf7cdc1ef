// Package sms delivers short text messages through an HTTP SMS gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crm_automation_backend/platform/config"
	"crm_automation_backend/platform/phone"
)

// Client sends SMS messages. A disabled client drops sends silently so
// callers do not need config awareness.
type Client struct {
	enabled       bool
	gatewayURL    string
	gatewayToken  string
	defaultRegion string
	httpClient    *http.Client
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func NewClient(cfg config.SMSConfig) *Client {
	return &Client{
		enabled:       cfg.GetSMSEnabled(),
		gatewayURL:    cfg.GetSMSGatewayURL(),
		gatewayToken:  cfg.GetSMSGatewayToken(),
		defaultRegion: cfg.GetSMSDefaultRegion(),
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether sends will actually go out.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Send normalizes the destination to E.164 and posts the message to the
// gateway. Numbers that cannot be normalized are rejected.
func (c *Client) Send(ctx context.Context, toNumber, message string) error {
	if !c.enabled {
		return nil
	}

	normalized := phone.NormalizeE164Region(toNumber, c.defaultRegion)
	if !strings.HasPrefix(normalized, "+") {
		return fmt.Errorf("invalid sms destination %q", toNumber)
	}

	body, err := json.Marshal(sendRequest{To: normalized, Message: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.gatewayToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms send failed: status %d: %s", resp.StatusCode, string(data))
	}

	return nil
}
