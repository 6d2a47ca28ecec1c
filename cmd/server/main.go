// Package main runs the GEO bot webhook server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/garyellow/geo-linebot-go/internal/app"
	"github.com/garyellow/geo-linebot-go/internal/buildinfo"
	"github.com/garyellow/geo-linebot-go/internal/config"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := app.Initialize(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("initialize %s: %w", buildinfo.Version, err)
	}
	return a.Run()
}
