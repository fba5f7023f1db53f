package domain

import "time"

// Stage names a pipeline step for audit purposes.
type Stage string

const (
	StageQuarantine  Stage = "QUARANTINE"
	StageExactMatch  Stage = "EXACT_MATCH"
	StageFuzzyMatch  Stage = "FUZZY_MATCH"
	StageResolve     Stage = "RESOLVE"
	StageDiff        Stage = "DIFF"
	StageClassify    Stage = "CLASSIFY"
	StageRoute       Stage = "ROUTE"
	StageRunComplete Stage = "RUN_COMPLETE"
)

// AuditEvent is one append-only lineage entry. Events are never mutated or
// deleted; event ids are a per-run sequence so reruns produce identical
// trails apart from run id and wall-clock timestamps.
type AuditEvent struct {
	EventID    string    `json:"event_id"`
	Stage      Stage     `json:"stage"`
	InputRefs  []string  `json:"input_refs,omitempty"`
	OutputRefs []string  `json:"output_refs,omitempty"`
	Note       string    `json:"note,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RunID      string    `json:"run_id"`
}
