package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/argus-ai/argus/pkg/config"
	"github.com/argus-ai/argus/pkg/registry"
)

func newModelsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List configured models and credential status",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			reg, err := registry.New(cfg)
			if err != nil {
				return err
			}

			fmt.Printf("%-16s %-28s %-12s %-24s %-10s\n",
				"ID", "Name", "Provider", "Key Env", "Status")
			fmt.Println(strings.Repeat("-", 94))
			for _, m := range reg.All() {
				status := "available"
				if !m.Enabled {
					status = "no key"
				}
				id := m.ID
				if m.ID == reg.DefaultID() {
					id += " *"
				}
				fmt.Printf("%-16s %-28s %-12s %-24s %-10s\n",
					id, m.Name, m.Provider, m.APIKeyEnv, status)
			}

			if def := os.Getenv("ARGUS_DEFAULT_MODEL"); def != "" {
				fmt.Printf("\ndefault overridden by ARGUS_DEFAULT_MODEL=%s\n", def)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "argus.yaml", "path to config file")
	return cmd
}
