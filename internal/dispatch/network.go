package dispatch

import (
	"context"
	"fmt"
	"net"
	"time"

	"restaurant-fulfillment/internal/domain"
)

const (
	defaultPrinterPort    = 9100
	networkConnectTimeout = 10 * time.Second
)

// NetworkSender writes the raw ESC/POS payload to host:port over TCP
// and closes, the JetDirect way. Connect is capped so a dead printer
// resolves as a failure instead of a hang.
type NetworkSender struct {
	Host    string
	Port    int
	Timeout time.Duration
}

func NewNetworkSender(cfg domain.PrinterConfig) *NetworkSender {
	port := cfg.Port
	if port == 0 {
		port = defaultPrinterPort
	}
	return &NetworkSender{Host: cfg.Host, Port: port, Timeout: networkConnectTimeout}
}

func (s *NetworkSender) Name() string { return "network" }

func (s *NetworkSender) Send(ctx context.Context, payload []byte) error {
	if s.Host == "" {
		return &ConfigError{Reason: "network printer address is missing"}
	}
	d := net.Dialer{Timeout: s.Timeout}
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", s.Host, s.Port))
	if err != nil {
		return fmt.Errorf("connect %s:%d: %w", s.Host, s.Port, err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(s.Timeout))
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("write to %s:%d: %w", s.Host, s.Port, err)
	}
	return nil
}
