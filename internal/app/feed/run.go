package feed

import (
	"context"
	"fmt"

	"restaurant-fulfillment/internal/autoprint"
	"restaurant-fulfillment/internal/bus"
	"restaurant-fulfillment/internal/common/config"
	"restaurant-fulfillment/internal/common/db"
	"restaurant-fulfillment/internal/common/httpx"
	"restaurant-fulfillment/internal/common/logger"
	"restaurant-fulfillment/internal/common/mq"
	"restaurant-fulfillment/internal/repository"
)

// Run wires the feed service and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg config.App, lg *logger.Logger) error {
	var store repository.Store
	switch cfg.Store.Backend {
	case "postgres":
		conn, err := db.Connect(ctx, cfg.DB.DSN())
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer conn.Close()
		pg := repository.NewPostgresStore(conn)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		store = pg
	default:
		store = repository.NewMemoryStore()
	}

	b := bus.New(lg)

	trig := autoprint.New(autoprint.Config{Store: store, Logger: lg})
	unsubscribe := trig.Attach(b)
	defer unsubscribe()

	if cfg.MQ.Enabled {
		client, err := mq.Dial(cfg.MQ.URL())
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer client.Close()
		if err := client.DeclareAll(); err != nil {
			return fmt.Errorf("declare mq topology: %w", err)
		}
		bridge := NewBridge(client, store, b, lg)
		go func() {
			if err := bridge.Run(ctx); err != nil {
				lg.Error("bridge_stopped", err, nil)
			}
		}()
	}

	engine := httpx.NewEngine()
	NewService(store, b, lg).Register(engine)

	srv := httpx.New(cfg.HTTP.Address(), engine)
	lg.Info("service_started", map[string]any{"mode": "feed-service", "address": cfg.HTTP.Address()})
	err := srv.Run(ctx)
	trig.Wait()
	return err
}
