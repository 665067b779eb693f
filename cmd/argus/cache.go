package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cachepkg "github.com/argus-ai/argus/pkg/cache/sqlite"
	"github.com/argus-ai/argus/pkg/config"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the review cache",
	}

	openCache := func() (*cachepkg.Cache, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		return cachepkg.New(cfg.DBPath, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			stats, err := c.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("Entries:   %d\nHits:      %d\nMisses:    %d\nEvictions: %d\n",
				stats.TotalEntries, stats.Hits, stats.Misses, stats.Evictions)
			return nil
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if expiredOnly {
				n, err := c.Sweep()
				if err != nil {
					return err
				}
				fmt.Printf("Removed %d expired entries.\n", n)
				return nil
			}
			if err := c.Clear(); err != nil {
				return err
			}
			fmt.Println("All cache entries cleared.")
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only remove expired entries")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "argus.yaml", "path to config file")
	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
