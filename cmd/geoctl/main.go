// Package main implements geoctl, the operator CLI for the GEO bot.
//
// It shares configuration, the region dictionary and the store with the
// server, so commands see exactly what the bot sees.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/garyellow/geo-linebot-go/internal/app"
	"github.com/garyellow/geo-linebot-go/internal/buildinfo"
	"github.com/garyellow/geo-linebot-go/internal/config"
	"github.com/garyellow/geo-linebot-go/internal/logger"
	"github.com/garyellow/geo-linebot-go/internal/region"
	"github.com/garyellow/geo-linebot-go/internal/storage"
)

// loadConfig is replaced in tests.
var loadConfig = func() (*config.Config, error) {
	return config.LoadForMode(config.CLIMode)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "geoctl",
		Short:        "Operate the GEO contact bot",
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("regions", "", "region dictionary YAML (default: GEO_REGIONS_FILE or the embedded one)")

	root.AddCommand(
		newResolveCmd(),
		newValidateCmd(),
		newLookupCmd(),
		newSeedCmd(),
		newExportCmd(),
	)
	return root
}

// env is what every command needs besides its own arguments.
type env struct {
	cfg  *config.Config
	dict *region.Dictionary
	log  *logger.Logger
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if path, _ := cmd.Flags().GetString("regions"); path != "" {
		cfg.RegionsFile = path
	}

	dict, err := region.Load(cfg.RegionsFile)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:  cfg,
		dict: dict,
		log:  logger.NewWithWriter(cfg.LogLevel, cmd.ErrOrStderr()),
	}, nil
}

// withStore opens the configured store for the duration of fn.
func (e *env) withStore(ctx context.Context, fn func(storage.Store) error) error {
	store, err := app.OpenStore(ctx, e.cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			e.log.WithError(cerr).Warn("Store close failed")
		}
	}()
	return fn(store)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
