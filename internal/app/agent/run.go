// Package agent is the print-agent mode: a device-resident process
// that follows the fulfillment feed, alerts on new orders and prints
// them through whatever transports the runtime offers.
package agent

import (
	"context"
	"strings"

	"restaurant-fulfillment/internal/autoprint"
	"restaurant-fulfillment/internal/common/config"
	"restaurant-fulfillment/internal/common/logger"
	"restaurant-fulfillment/internal/dispatch"
	"restaurant-fulfillment/internal/dispatch/device"
	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/feedclient"
	"restaurant-fulfillment/internal/repository"
)

// Run wires the agent and blocks until ctx is cancelled. Host wrappers
// that embed the agent pass the device capabilities they probed; the
// standalone binary passes an empty set and relies on the configured
// network or relay printer.
func Run(ctx context.Context, cfg config.App, lg *logger.Logger, caps device.Capabilities) error {
	printerCfg := domain.PrinterConfig{
		Kind:     domain.PrinterKind(cfg.Agent.Printer.Kind),
		Host:     cfg.Agent.Printer.Host,
		Port:     cfg.Agent.Printer.Port,
		Endpoint: cfg.Agent.Printer.Endpoint,
		APIKey:   cfg.Agent.Printer.APIKey,
		Profile:  cfg.Agent.Printer.Profile,
	}

	store := repository.NewMemoryStore()
	autoPrint := cfg.Agent.AutoPrint
	if autoPrint && cfg.Agent.TenantID == "" {
		lg.Warn("auto_print_requires_tenant", nil)
		autoPrint = false
	}
	if autoPrint {
		if err := store.SavePrintSettings(ctx, domain.PrintSettings{
			TenantID:  cfg.Agent.TenantID,
			AutoPrint: true,
			Printer:   printerCfg,
		}); err != nil {
			return err
		}
	}

	trig := autoprint.New(autoprint.Config{
		Store:  store,
		Logger: lg,
		Engine: engineFactory(lg, caps, cfg.Agent),
	})

	src := feedclient.NewHTTPSource(feedURL(cfg.Agent))
	client := feedclient.New(feedclient.Config{
		Dial:         src.Dial,
		Poll:         src.Poll,
		PollInterval: cfg.Agent.PollInterval,
		GraceWindow:  cfg.Agent.GraceWindow,
		Logger:       lg,
		OnNewOrder: func(o domain.Order) {
			lg.Info("new_order_received", map[string]any{
				"order_id": o.ID,
				"number":   o.ShortID(),
				"total":    o.TotalAmount,
			})
			trig.HandleOrder(o)
		},
	})
	client.Start(ctx)
	lg.Info("service_started", map[string]any{"mode": "print-agent", "feed_url": feedURL(cfg.Agent)})

	<-ctx.Done()
	client.Close()
	trig.Wait()
	return nil
}

// engineFactory prefers the device chain when the host probed any
// capability; otherwise dispatch falls back to the server-style chain
// over the env-configured printer.
func engineFactory(lg *logger.Logger, caps device.Capabilities, a config.Agent) autoprint.EngineFactory {
	return func(pc domain.PrinterConfig) *dispatch.Engine {
		if caps.Accessory != nil || caps.RawText != nil || caps.Link != nil ||
			caps.Launcher != nil || caps.WebLink != nil {
			return device.BuildChain(lg, caps, device.Options{
				FrameSize:  a.FrameSize,
				PaperWidth: paperWidth(pc.Profile),
			})
		}
		return dispatch.ServerEngine(lg, pc)
	}
}

func paperWidth(profile string) string {
	if strings.Contains(profile, "80") {
		return "80"
	}
	return "58"
}

func feedURL(a config.Agent) string {
	u := a.FeedURL
	if a.TenantID == "" {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "tenant=" + a.TenantID
}
