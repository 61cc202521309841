package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/config"
	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/server"
)

func main() {
	configPath := flag.String("config", "", "YAML or TOML file keyed by environment variable names")
	port := flag.String("port", "", "Server port (overrides PORT)")
	host := flag.String("host", "", "Listen host (overrides HOST)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	dev := flag.Bool("dev", false, "Development logging")
	cdpURL := flag.String("cdp", "", "Chrome DevTools websocket URL; enables DevTools surfaces")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *port != "" {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *dev {
		cfg.Logging.Development = true
	}
	if *cdpURL != "" {
		cfg.CDP.URL = *cdpURL
		cfg.CDP.Enabled = true
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		_ = srv.Close()
		log.Fatalf("Server error: %v", err)
	}
}
