package feedclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"restaurant-fulfillment/internal/domain"
)

const streamSuffix = "/stream"

// HTTPSource speaks the feed service's wire protocol: a newline-
// delimited JSON event stream, and a plain JSON array snapshot at the
// same URL with the stream suffix removed. One configured URL serves
// both channels.
type HTTPSource struct {
	StreamURL string
	Client    *http.Client
}

func NewHTTPSource(streamURL string) *HTTPSource {
	return &HTTPSource{
		StreamURL: streamURL,
		// No overall timeout: the stream connection is long-lived.
		Client: &http.Client{},
	}
}

// PollURL derives the snapshot endpoint from the stream endpoint.
func (s *HTTPSource) PollURL() string {
	base := s.StreamURL
	if i := strings.Index(base, "?"); i >= 0 {
		return strings.TrimSuffix(base[:i], streamSuffix) + base[i:]
	}
	return strings.TrimSuffix(base, streamSuffix)
}

func (s *HTTPSource) Dial(ctx context.Context) (EventReader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.StreamURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned %d", resp.StatusCode)
	}
	return &ndjsonReader{resp: resp, sc: bufio.NewScanner(resp.Body)}, nil
}

func (s *HTTPSource) Poll(ctx context.Context) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.PollURL(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll returned %d", resp.StatusCode)
	}
	var orders []domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return orders, nil
}

type ndjsonReader struct {
	resp *http.Response
	sc   *bufio.Scanner
}

func (r *ndjsonReader) Next() (domain.OrderEvent, error) {
	for r.sc.Scan() {
		line := strings.TrimSpace(r.sc.Text())
		if line == "" {
			continue
		}
		var ev domain.OrderEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			// One bad line must not kill the stream.
			continue
		}
		return ev, nil
	}
	if err := r.sc.Err(); err != nil {
		return domain.OrderEvent{}, err
	}
	return domain.OrderEvent{}, fmt.Errorf("stream closed")
}

func (r *ndjsonReader) Close() error {
	return r.resp.Body.Close()
}
