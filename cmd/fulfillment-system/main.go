package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"restaurant-fulfillment/internal/app/agent"
	"restaurant-fulfillment/internal/app/feed"
	"restaurant-fulfillment/internal/common/config"
	"restaurant-fulfillment/internal/common/logger"
	"restaurant-fulfillment/internal/dispatch/device"
)

func main() {
	mode := flag.String("mode", "", "feed-service | print-agent")
	flag.Parse()

	lg := logger.New("bootstrap")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		lg.Error("config_load_failed", err, nil)
		os.Exit(1)
	}

	switch *mode {
	case "feed-service":
		if err := feed.Run(ctx, cfg, logger.New("feed-service")); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "print-agent":
		if err := agent.Run(ctx, cfg, logger.New("print-agent"), device.Capabilities{}); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: feed-service | print-agent")
		os.Exit(2)
	}
}
