package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/autocoin/futures-trader/internal/config"
	"github.com/autocoin/futures-trader/internal/engine"
	"github.com/autocoin/futures-trader/internal/exchange"
	"github.com/autocoin/futures-trader/internal/monitoring"
	"github.com/autocoin/futures-trader/internal/notifications"
)

func main() {
	var (
		envFile      = flag.String("env", ".env", "Environment file path")
		symbol       = flag.String("symbol", "", "Trading symbol - overrides environment")
		strategyName = flag.String("strategy", "", "Initial strategy - overrides environment")
		demo         = flag.Bool("demo", false, "Force the demo trading environment")
	)
	flag.Parse()

	if err := loadEnvFile(*envFile); err != nil {
		log.Printf("Warning: could not load env file (%v), using environment variables", err)
	}

	cfg := config.Load()
	if *symbol != "" {
		cfg.Trading.Symbol = *symbol
	}
	if *strategyName != "" {
		cfg.Trading.Strategy = *strategyName
	}
	if *demo {
		cfg.Exchange.Demo = true
		cfg.Exchange.Testnet = false
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ex, err := exchange.New(cfg.Exchange, cfg.Trading.Category)
	if err != nil {
		log.Fatalf("Exchange setup failed: %v", err)
	}

	var notifier notifications.Notifier = notifications.Noop{}
	if cfg.Notifications.TelegramToken != "" && cfg.Notifications.TelegramChatID != "" {
		notifier = notifications.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID)
	}

	eng, err := engine.New(cfg, ex, notifier)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	startHTTPServers(cfg, eng)

	if err := eng.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			// re-read risk limits from the environment without restarting
			if err := eng.ReloadRiskLimits(config.Load().Risk); err != nil {
				log.Printf("Risk limit reload rejected: %v", err)
			}
			continue
		}
		break
	}
	fmt.Println("\nShutdown signal received...")

	if err := eng.Stop(); err != nil {
		log.Fatalf("Shutdown failed: %v", err)
	}
	fmt.Println("Trader stopped")
}

// startHTTPServers exposes the Prometheus metrics and health endpoints
func startHTTPServers(cfg *config.Config, eng *engine.Engine) {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", monitoring.NewMetricsHandler())
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
		if err := http.ListenAndServe(addr, metricsMux); err != nil {
			log.Printf("Metrics server stopped: %v", err)
		}
	}()

	healthMux := http.NewServeMux()
	healthMux.Handle("/health", eng.Health())
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.HealthPort)
		if err := http.ListenAndServe(addr, healthMux); err != nil {
			log.Printf("Health server stopped: %v", err)
		}
	}()
}

func loadEnvFile(envFile string) error {
	if _, err := os.Stat(envFile); err == nil {
		return godotenv.Load(envFile)
	}
	return fmt.Errorf("env file %s not found", envFile)
}
