package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"revrecon/internal/gateway"
)

func newAuditCommand(opts *rootOptions) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Dump a run's audit trail in order",
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

			events, err := store.ListAuditEvents(cmd.Context(), runID)
			if err != nil {
				return err
			}

			if opts.JSON {
				out, err := json.MarshalIndent(events, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			headers := []string{"Event", "Stage", "Time", "Note"}
			rows := make([][]string, 0, len(events))
			for _, ev := range events {
				rows = append(rows, []string{
					ev.EventID,
					string(ev.Stage),
					ev.Timestamp.Format(time.RFC3339),
					ev.Note,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "run whose trail to dump (required)")
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}
