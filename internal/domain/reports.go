package domain

// RunStatus is the user-visible outcome of a reconciliation run.
type RunStatus string

const (
	RunComplete             RunStatus = "COMPLETE"
	RunCompleteWithWarnings RunStatus = "COMPLETE_WITH_WARNINGS"
	RunFailed               RunStatus = "FAILED"
)

// QuarantinedRecord is an input record excluded from matching because a
// required field was missing or unusable. Quarantined records are reported,
// never silently dropped.
type QuarantinedRecord struct {
	RecordID string `json:"record_id"`
	Source   Source `json:"source"`
	Reason   string `json:"reason"`
}

// PartitionFailure reports one partition whose processing failed. Other
// partitions proceed; the run degrades instead of aborting.
type PartitionFailure struct {
	ServiceType string `json:"service_type"`
	Err         string `json:"error"`
}

// Summary holds the run-level KPIs surfaced on the dashboard and report.
type Summary struct {
	Period               string  `json:"period"`
	TotalClientRecords   int     `json:"total_client_records"`
	TotalLedgerRecords   int     `json:"total_ledger_records"`
	MatchedPairs         int     `json:"matched_pairs"`
	MatchRatePct         float64 `json:"match_rate_pct"`
	AvgVariancePct       float64 `json:"avg_variance_pct"`
	WithinTolerancePct   float64 `json:"within_tolerance_pct"`
	TotalVarianceDollars int64   `json:"total_variance_dollars"`
	UnmatchedClient      int     `json:"unmatched_client"`
	UnmatchedLedger      int     `json:"unmatched_ledger"`
	Quarantined          int     `json:"quarantined"`
	AutoResolved         int     `json:"auto_resolved"`
	Escalated            int     `json:"escalated"`
}

// ReportRow is one line of the reconciliation report: a resolved match or an
// unmatched singleton with its variance and disposition. Category and Action
// are empty when the pair produced no exception.
type ReportRow struct {
	ClientRecordID    string        `json:"client_record_id,omitempty"`
	LedgerRecordID    string        `json:"ledger_record_id,omitempty"`
	SiteKey           string        `json:"site_key"`
	ServiceType       string        `json:"service_type"`
	EventDate         string        `json:"event_date"`
	ClientAmountCents int64         `json:"client_amount_cents"`
	LedgerAmountCents int64         `json:"ledger_amount_cents"`
	DollarDelta       int64         `json:"dollar_delta"`
	PercentDelta      float64       `json:"percent_delta"`
	Direction         Direction     `json:"direction"`
	MatchBasis        MatchBasis    `json:"match_basis,omitempty"`
	Score             float64       `json:"score,omitempty"`
	Category          Category      `json:"category,omitempty"`
	Confidence        float64       `json:"confidence,omitempty"`
	Action            RoutingAction `json:"action,omitempty"`
}

// RunResult is the complete, immutable output of one reconciliation run.
type RunResult struct {
	RunID              string                `json:"run_id"`
	Period             string                `json:"period"`
	Status             RunStatus             `json:"status"`
	Summary            Summary               `json:"summary"`
	Matches            []ResolvedMatch       `json:"matches"`
	Unmatched          []UnmatchedRecord     `json:"unmatched"`
	Ambiguous          []AmbiguousTie        `json:"ambiguous,omitempty"`
	Differences        []DifferenceRecord    `json:"differences"`
	Exceptions         []ClassifiedException `json:"exceptions"`
	Decisions          []RoutingDecision     `json:"decisions"`
	Rows               []ReportRow           `json:"rows"`
	QuarantinedRecords []QuarantinedRecord   `json:"quarantined_records,omitempty"`
	PartitionFailures  []PartitionFailure    `json:"partition_failures,omitempty"`
	AuditEvents        []AuditEvent          `json:"audit_events"`
}
