package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"waysky/internal/config"
	"waysky/internal/overlay"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml (default: $WAYSKY_CONFIG or XDG config dir)")
	printDefault := flag.Bool("default-config", false, "print the default configuration and exit")
	flag.Parse()

	if *printDefault {
		fmt.Print(config.DefaultTOML())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := overlay.BuildLogger(cfg)
	o, err := overlay.New(cfg, logger)
	if err != nil {
		logger.Error("overlay initialization failed", "error", err)
		os.Exit(1)
	}

	if err := o.Run(context.Background()); err != nil {
		logger.Error("overlay runtime failed", "error", err)
		os.Exit(1)
	}
}
