package dispatch

import (
	"restaurant-fulfillment/internal/common/logger"
	"restaurant-fulfillment/internal/domain"
)

// ServerEngine builds the backend-side chain for a tenant's printer
// configuration. Only socket printing and the POS relay are reachable
// from the server; device transports live in the print agent.
func ServerEngine(lg *logger.Logger, cfg domain.PrinterConfig) *Engine {
	switch cfg.Kind {
	case domain.PrinterNetwork:
		senders := []Sender{NewNetworkSender(cfg)}
		if cfg.Endpoint != "" {
			senders = append(senders, NewRelaySender(cfg))
		}
		return New(lg, senders...)
	case domain.PrinterVendorApp, domain.PrinterBluetooth:
		// Device-bound kinds fall back to the relay when one is
		// configured; otherwise the server has nothing to try.
		if cfg.Endpoint != "" {
			return New(lg, NewRelaySender(cfg))
		}
		return New(lg)
	default:
		return New(lg)
	}
}
