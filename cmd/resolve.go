package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/georesolve/internal/batch"
)

var (
	resolveInput   string
	resolveOutput  string
	resolveLimit   int
	resolveOffline bool
	resolveDryRun  bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a CSV of city/country rows to coordinates",
	Long: `Reads a CSV with City and Country columns, resolves every distinct
(city, country) pair once via the tiered strategy, and writes the dataset
back with Latitude and Longitude columns appended.

Examples:
  # Parse only, no resolution
  georesolve resolve --input users.csv --dry-run

  # Offline tiers only (no network calls)
  georesolve resolve --input users.csv --offline

  # Full run with explicit output path
  georesolve resolve --input users.csv --output users_with_coordinates.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		table, err := batch.ReadTable(resolveInput)
		if err != nil {
			return eris.Wrap(err, "resolve: read input")
		}
		zap.L().Info("parsed input csv", zap.Int("rows", len(table.Rows)))

		if resolveLimit > 0 && resolveLimit < len(table.Rows) {
			table.Rows = table.Rows[:resolveLimit]
		}

		if resolveDryRun {
			zap.L().Info("dry run, skipping resolution",
				zap.Strings("columns", table.Header),
				zap.Int("rows", len(table.Rows)),
			)
			return nil
		}

		env, err := initResolveEnv(ctx, cfg, resolveOffline)
		if err != nil {
			return eris.Wrap(err, "resolve: init")
		}
		defer env.Close()

		stats, err := batch.Run(ctx, table, env.index, env.resolver)
		if err != nil {
			return eris.Wrap(err, "resolve: run batch")
		}

		output := resolveOutput
		if output == "" {
			output = strings.TrimSuffix(resolveInput, ".csv") + "_with_coordinates.csv"
		}
		if err := batch.WriteTable(output, table); err != nil {
			return eris.Wrap(err, "resolve: write output")
		}

		zap.L().Info("wrote output csv",
			zap.String("path", output),
			zap.Int("rows", stats.Rows),
			zap.Int("unresolved", stats.BySource["unresolved"]),
		)
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveInput, "input", "", "input CSV path (required)")
	resolveCmd.Flags().StringVar(&resolveOutput, "output", "", "output CSV path (default: <input>_with_coordinates.csv)")
	resolveCmd.Flags().IntVar(&resolveLimit, "limit", 0, "process at most N rows (0 = all)")
	resolveCmd.Flags().BoolVar(&resolveOffline, "offline", false, "disable the online geocoding tier")
	resolveCmd.Flags().BoolVar(&resolveDryRun, "dry-run", false, "parse the input and exit without resolving")
	_ = resolveCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(resolveCmd)
}
