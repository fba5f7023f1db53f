package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"revrecon/internal/domain"
	"revrecon/internal/gateway"
)

func newQueueCommand(opts *rootOptions) *cobra.Command {
	var runID string
	var all bool

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List escalated exceptions awaiting review",
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

			entries, err := store.ListExceptions(cmd.Context(), runID, !all)
			if err != nil {
				return err
			}

			if opts.JSON {
				out, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			headers := []string{"ID", "Run", "Category", "Confidence", "Delta $", "Status", "Evidence"}
			aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					strconv.FormatInt(e.ID, 10),
					e.RunID,
					string(e.Exception.Category),
					fmt.Sprintf("%.2f", e.Exception.Confidence),
					strconv.FormatInt(e.Exception.Difference.DollarDelta, 10),
					string(e.ReviewStatus),
					e.Exception.Evidence,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "restrict to one run")
	cmd.Flags().BoolVar(&all, "all", false, "include already-reviewed entries")

	cmd.AddCommand(newQueueResolveCommand(opts))
	return cmd
}

func newQueueResolveCommand(opts *rootOptions) *cobra.Command {
	var entryID int64
	var decision, note string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Record a review decision on a queue entry",
		Long: "Records ACCEPT, OVERRIDE, or REJECT on a pending queue entry. The decision\n" +
			"feeds the next run's input adjustments; past run results stay immutable.",
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

			var status domain.ReviewStatus
			switch decision {
			case "accept":
				status = domain.ReviewAccepted
			case "override":
				status = domain.ReviewOverridden
			case "reject":
				status = domain.ReviewRejected
			default:
				return fmt.Errorf("invalid decision %q: must be accept, override, or reject", decision)
			}

			if err := store.ResolveException(cmd.Context(), entryID, status, note); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue entry %d marked %s\n", entryID, status)
			return nil
		},
	}

	cmd.Flags().Int64Var(&entryID, "id", 0, "queue entry id (required)")
	cmd.Flags().StringVar(&decision, "decision", "", "accept|override|reject (required)")
	cmd.Flags().StringVar(&note, "note", "", "reviewer note, e.g. the override value")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("decision")
	return cmd
}
