package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"faucetminer/internal/config"
	"faucetminer/internal/daemon"
	"faucetminer/internal/mcpserver"
)

var Version = "0.1.0"

func main() {
	cfgPath := flag.String("config", "", "path to faucetminer.yaml")
	mcpMode := flag.Bool("mcp", false, "also serve MCP tools on stdio")
	flag.Parse()

	// ANSI cyan: \033[36m  Reset: \033[0m
	cyan := "\033[36m"
	reset := "\033[0m"
	dim := "\033[2m"

	fmt.Printf(cyan+`
   __                  _            _
  / _| __ _ _   _  ___| |_ _ __ ___ (_)_ __   ___ _ __
 | |_ / _`+"`"+` | | | |/ __| __| '_ `+"`"+` _ \| | '_ \ / _ \ '__|
 |  _| (_| | |_| | (__| |_| | | | | | | | | |  __/ |
 |_|  \__,_|\__,_|\___|\__|_| |_| |_|_|_| |_|\___|_|
`+reset+`
  `+dim+`Simulated mining + claim ledger daemon  v%s`+reset+`
  `+cyan+`━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━`+reset+`
`, Version)

	// Resolve config path
	if *cfgPath == "" {
		home, _ := os.UserHomeDir()
		*cfgPath = filepath.Join(home, ".faucetminer", "faucetminer.yaml")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[main] Failed to load config: %v", err)
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		log.Fatalf("[main] Failed to create data dir %s: %v", cfg.DataDir, err)
	}

	log.Printf("[main] Data dir: %s", cfg.DataDir)

	d, err := daemon.New(cfg)
	if err != nil {
		log.Fatalf("[main] Failed to create daemon: %v", err)
	}

	if err := d.Start(); err != nil {
		log.Fatalf("[main] Failed to start daemon: %v", err)
	}

	if *mcpMode {
		mcpSrv := mcpserver.New(Version, d)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := mcpSrv.Run(ctx); err != nil {
				log.Printf("[main] MCP server exited: %v", err)
			}
		}()
		log.Println("[main] MCP tools serving on stdio")
	}

	// Block on signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("[main] Received %s, shutting down...", sig)

	d.Stop()
	log.Println("[main] Goodbye.")
}
