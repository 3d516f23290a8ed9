package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/casdk/internal/domain/telemetry"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/transport"
	"github.com/GriffinCanCode/casdk/internal/shared/types"
)

type parsedValue struct {
	ID    string      `json:"id"`
	Type  string      `json:"type"`
	Value types.Value `json:"value"`
}

func newParseCommand() *cobra.Command {
	var (
		prefix string
		filter string
		asJSON bool
	)

	c := &cobra.Command{
		Use:   "parse <snapshot>",
		Short: "Parse a table snapshot dump",
		Long: `Parse a table snapshot dump and print the values it holds.

Gzipped dumps are read transparently. Binary and malformed lines are
counted and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := telemetry.LookupFilter(filter)
			if err != nil {
				return err
			}
			data, err := transport.NewFileFetcher("").Fetch(context.Background(), filepath.Clean(args[0]))
			if err != nil {
				return err
			}
			entries, stats := telemetry.ParseSnapshot(string(data), f)
			return printSnapshot(cmd.OutOrStdout(), prefix, entries, stats, asJSON)
		},
	}

	c.Flags().StringVar(&prefix, "prefix", "", "Prefix prepended to value names")
	c.Flags().StringVar(&filter, "filter", "", "Line filter (gps)")
	c.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return c
}

func printSnapshot(w io.Writer, prefix string, entries []telemetry.Entry, stats telemetry.ParseStats, asJSON bool) error {
	values := make([]parsedValue, 0, len(entries))
	for _, e := range entries {
		values = append(values, parsedValue{
			ID:    telemetry.CanonicalID(prefix, e.Name),
			Type:  e.Type,
			Value: types.Coerce(e.Raw),
		})
	}

	if asJSON {
		out, err := sonic.ConfigStd.MarshalIndent(map[string]any{
			"values": values,
			"stats":  stats,
		}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}

	for _, v := range values {
		fmt.Fprintf(w, "%-32s %-8s %s\n", v.ID, v.Type, v.Value.String())
	}
	fmt.Fprintf(w, "\n%d lines, %d values, %d binary, %d skipped\n",
		stats.Lines, stats.Entries, stats.Binary, stats.Skipped)
	return nil
}
