package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"restaurant-fulfillment/internal/domain"
)

// RelaySender hands the receipt to a third-party POS relay over HTTP.
// The relay owns the physical delivery; a 2xx response is success.
type RelaySender struct {
	Endpoint string
	APIKey   string
	Profile  string
	Client   *http.Client
}

type relayJob struct {
	Profile string       `json:"profile"`
	Content relayContent `json:"content"`
}

type relayContent struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Data     string `json:"data"`
}

func NewRelaySender(cfg domain.PrinterConfig) *RelaySender {
	return &RelaySender{
		Endpoint: cfg.Endpoint,
		APIKey:   cfg.APIKey,
		Profile:  cfg.Profile,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *RelaySender) Name() string { return "pos-relay" }

func (s *RelaySender) Send(ctx context.Context, payload []byte) error {
	if s.Endpoint == "" {
		return &ConfigError{Reason: "relay endpoint is missing"}
	}
	body, err := json.Marshal(relayJob{
		Profile: s.Profile,
		Content: relayContent{Type: "text/plain", Encoding: "utf-8", Data: string(payload)},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("relay post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("relay returned %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
