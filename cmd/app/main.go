package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"BreakoutScan/internal/di"
	"BreakoutScan/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	serve := flag.Bool("serve", false, "keep the HTTP API up after the scan")
	tickers := flag.String("tickers", "", "comma-separated tickers, overrides the watch list")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *tickers != "" {
		cfg.Scan.Tickers = splitTickers(*tickers)
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	if *serve {
		app.SetServe(true)
	}

	// Run application (blocks until signal in serve mode)
	err = app.Run(context.Background())
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

func splitTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
