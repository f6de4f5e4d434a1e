package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/sdui/internal/infrastructure/config"
	"github.com/GriffinCanCode/sdui/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override environment
	port := flag.String("port", cfg.Server.Port, "Server port")
	host := flag.String("host", cfg.Server.Host, "Server host")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development logging and placeholder rendering")
	policyFile := flag.String("policy", "", "Allow-list policy file (.yaml or .toml)")
	templatesDir := flag.String("templates", cfg.Templates.Dir, "Extra template directory")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Server.Host = *host
	cfg.Templates.Dir = *templatesDir
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
		cfg.Render.DevPlaceholders = true
		cfg.Server.GinMode = "debug"
	}
	if *policyFile != "" {
		p, err := config.LoadPolicyFile(*policyFile)
		if err != nil {
			log.Fatalf("Failed to load policy: %v", err)
		}
		cfg.Policy.Merge(p)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer srv.Close()

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		srv.Close()
		log.Fatalf("Server error: %v", err)
	}
}
