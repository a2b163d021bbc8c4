package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/georesolve/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "georesolve",
	Short: "Batch place-name to coordinate resolution",
	Long:  "Resolves free-text city/country pairs to coordinates via offline gazetteer lookup (exact, then fuzzy) with a rate-limited Nominatim fallback.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
