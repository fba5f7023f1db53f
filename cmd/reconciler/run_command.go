package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"revrecon/internal/domain"
	"revrecon/internal/gateway"
	"revrecon/internal/usecase"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var clientPath, ledgerPath, period string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a reconciliation run over one period's inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}

			store, err := gateway.OpenStore(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()

			uc := usecase.New(gateway.NewCSVRecordRepository(), store, cfg, logger)
			result, err := uc.Reconcile(cmd.Context(), clientPath, ledgerPath, period)
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

	cmd.Flags().StringVar(&clientPath, "client", "", "client job records CSV (required)")
	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "internal ledger CSV (required)")
	cmd.Flags().StringVar(&period, "period", "", "reconciliation period, e.g. 2025-01 (required)")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("ledger")
	_ = cmd.MarkFlagRequired("period")

	return cmd
}

func printRunSummary(cmd *cobra.Command, result *domain.RunResult) {
	s := result.Summary
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s): %s\n", result.RunID, result.Period, result.Status)
	fmt.Fprintf(out, "  matched %d pairs (%.2f%% match rate), avg variance %.2f%%, %.2f%% within tolerance\n",
		s.MatchedPairs, s.MatchRatePct, s.AvgVariancePct, s.WithinTolerancePct)
	fmt.Fprintf(out, "  unmatched: %d client / %d ledger, quarantined %d\n",
		s.UnmatchedClient, s.UnmatchedLedger, s.Quarantined)
	fmt.Fprintf(out, "  exceptions: %d auto-resolved, %d escalated, total variance $%d\n",
		s.AutoResolved, s.Escalated, s.TotalVarianceDollars)
	for _, f := range result.PartitionFailures {
		fmt.Fprintf(out, "  partition %s failed: %s\n", f.ServiceType, f.Err)
	}
}

func renderReportRows(rows []domain.ReportRow) string {
	headers := []string{"Client", "Ledger", "Site", "Service", "Date", "Delta $", "Delta %", "Direction", "Category", "Action"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignLeft}

	body := make([][]string, 0, len(rows))
	for _, row := range rows {
		body = append(body, []string{
			row.ClientRecordID,
			row.LedgerRecordID,
			row.SiteKey,
			row.ServiceType,
			row.EventDate,
			strconv.FormatInt(row.DollarDelta, 10),
			fmt.Sprintf("%.2f", row.PercentDelta*100),
			string(row.Direction),
			string(row.Category),
			string(row.Action),
		})
	}
	return renderTable(headers, body, aligns)
}
