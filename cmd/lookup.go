package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/georesolve/internal/normalize"
)

var lookupOffline bool

var lookupCmd = &cobra.Command{
	Use:   "lookup <city> <country>",
	Short: "Resolve a single city/country pair and print the outcome as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initResolveEnv(ctx, cfg, lookupOffline)
		if err != nil {
			return eris.Wrap(err, "lookup: init")
		}
		defer env.Close()

		city := normalize.Key(args[0])
		code, _ := env.index.CountryCode(normalize.Key(args[1]))
		out := env.resolver.Resolve(ctx, city, code)

		report := map[string]any{
			"city":     city,
			"country":  code,
			"resolved": out.Resolved,
		}
		if out.Resolved {
			report["latitude"] = out.Lat
			report["longitude"] = out.Lon
			report["source"] = out.Source
		} else {
			report["reason"] = string(out.Reason)
		}

		enc, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return eris.Wrap(err, "lookup: marshal outcome")
		}
		fmt.Println(string(enc))
		return nil
	},
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupOffline, "offline", false, "disable the online geocoding tier")
	rootCmd.AddCommand(lookupCmd)
}
