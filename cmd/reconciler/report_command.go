package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"revrecon/internal/gateway"
)

func newReportCommand(opts *rootOptions) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a stored run's reconciliation report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			store, err := gateway.OpenStore(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()

			if runID == "" {
				runs, err := store.ListRuns(cmd.Context())
				if err != nil {
					return err
				}
				if opts.JSON {
					out, err := json.MarshalIndent(runs, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(out))
					return nil
				}
				headers := []string{"Run", "Period", "Status", "Matched", "Escalated", "Auto-resolved"}
				rows := make([][]string, 0, len(runs))
				for _, r := range runs {
					rows = append(rows, []string{
						r.RunID, r.Period, string(r.Status),
						fmt.Sprint(r.Summary.MatchedPairs),
						fmt.Sprint(r.Summary.Escalated),
						fmt.Sprint(r.Summary.AutoResolved),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, nil))
				return nil
			}

			result, err := store.GetRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if opts.JSON {
				out, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			printRunSummary(cmd, result)
			fmt.Fprintln(cmd.OutOrStdout(), renderReportRows(result.Rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "run to render (lists runs when omitted)")
	return cmd
}
