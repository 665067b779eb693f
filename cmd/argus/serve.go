package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cachepkg "github.com/argus-ai/argus/pkg/cache/sqlite"
	"github.com/argus-ai/argus/pkg/config"
	"github.com/argus-ai/argus/pkg/dispatch"
	"github.com/argus-ai/argus/pkg/mcp"
	"github.com/argus-ai/argus/pkg/provider"
	"github.com/argus-ai/argus/pkg/registry"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol; everything else goes to stderr.
			log.SetOutput(os.Stderr)

			// Credentials from .env when present; a missing file is fine.
			_ = godotenv.Load()

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			reg, err := registry.New(cfg)
			if err != nil {
				return fmt.Errorf("init registry: %w", err)
			}

			var cache *cachepkg.Cache
			if cfg.Cache.Enabled {
				cache, err = cachepkg.New(cfg.DBPath, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
				if err != nil {
					return fmt.Errorf("init cache: %w", err)
				}
				defer func() { _ = cache.Close() }()
			}

			var dispatchCache dispatch.Cache
			var statter mcp.CacheStatter
			if cache != nil {
				dispatchCache = cache
				statter = cache
			}

			d := dispatch.New(reg, dispatchCache, provider.NewClient(), dispatch.PolicyFromConfig(cfg.Retry))
			srv := mcp.New(d, reg, statter, version)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Printf("argus: serving MCP on stdio, %d models, default %s",
				len(reg.All()), reg.DefaultID())
			return srv.Run(ctx, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "argus.yaml", "path to config file")
	return cmd
}
