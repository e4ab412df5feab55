// Package whatsapp sends chat messages through a GOWA-compatible gateway.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studio_sales_backend/platform/apperr"
	"studio_sales_backend/platform/config"
	"studio_sales_backend/platform/logger"
	"studio_sales_backend/platform/phone"
)

type Client struct {
	baseURL  string
	apiKey   string
	deviceID string
	http     *http.Client
	log      *logger.Logger
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// NewClient returns nil when no gateway URL is configured.
func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	if cfg.GetWhatsAppURL() == "" {
		return nil
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		apiKey:   cfg.GetWhatsAppKey(),
		deviceID: cfg.GetWhatsAppDeviceID(),
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

// SendMessage posts one text message. Numbers the gateway cannot reach
// are rejected before any request is made.
func (c *Client) SendMessage(ctx context.Context, phoneNumber string, message string) error {
	if !phone.Messageable(phoneNumber) {
		return apperr.Validation("phone number is not reachable on whatsapp")
	}

	payload := sendRequest{
		Phone:   phone.WhatsAppJID(phoneNumber),
		Message: message,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send/message", bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", formatAuthHeader(c.apiKey))
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-Id", c.deviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Unavailable("whatsapp", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.Unavailable("whatsapp", fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	c.log.Info("whatsapp sent", "phone", payload.Phone)
	return nil
}

func formatAuthHeader(apiKey string) string {
	if strings.HasPrefix(strings.ToLower(apiKey), "basic ") {
		return apiKey
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(apiKey))
	return "Basic " + encoded
}
