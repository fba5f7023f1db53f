package domain

// Category is the root-cause label assigned to a difference.
type Category string

// Root-cause taxonomy. Order of evaluation is configuration; these are the
// recognized tags.
const (
	CategoryDuplicate        Category = "DUPLICATE"
	CategoryRateChange       Category = "RATE_CHANGE"
	CategoryTimingDifference Category = "TIMING_DIFFERENCE"
	CategoryMissingRecord    Category = "MISSING_RECORD"
	CategoryVolumeMismatch   Category = "VOLUME_MISMATCH"
	CategoryUnclassified     Category = "UNCLASSIFIED"
)

// Categories lists every recognized taxonomy tag.
func Categories() []Category {
	return []Category{
		CategoryDuplicate,
		CategoryRateChange,
		CategoryTimingDifference,
		CategoryMissingRecord,
		CategoryVolumeMismatch,
		CategoryUnclassified,
	}
}

// ClassifiedException is a non-zero difference with an assigned root cause.
type ClassifiedException struct {
	Difference   DifferenceRecord `json:"difference"`
	Category     Category         `json:"category"`
	Confidence   float64          `json:"confidence"`
	Evidence     string           `json:"evidence"`
	SuggestedFix string           `json:"suggested_fix,omitempty"`
}

// RoutingAction is the terminal disposition of an exception.
type RoutingAction string

const (
	ActionAutoResolved RoutingAction = "AUTO_RESOLVED"
	ActionEscalated    RoutingAction = "ESCALATED"
)

// RoutingDecision records how an exception was dispatched. Every
// ClassifiedException yields exactly one RoutingDecision.
type RoutingDecision struct {
	Exception ClassifiedException `json:"exception"`
	Action    RoutingAction       `json:"action"`
	Reason    string              `json:"reason"`
}

// ReviewStatus tracks the human workflow on an escalated exception. The
// engine always creates queue entries as pending; later states are written by
// the review collaborator through the store.
type ReviewStatus string

const (
	ReviewPending    ReviewStatus = "pending"
	ReviewAccepted   ReviewStatus = "accepted"
	ReviewOverridden ReviewStatus = "overridden"
	ReviewRejected   ReviewStatus = "rejected"
)

// QueueEntry is one escalated exception as persisted in the review queue.
type QueueEntry struct {
	ID           int64               `json:"id"`
	RunID        string              `json:"run_id"`
	Exception    ClassifiedException `json:"exception"`
	Reason       string              `json:"reason"`
	ReviewStatus ReviewStatus        `json:"review_status"`
	// Resolution records the reviewer's ACCEPT/OVERRIDE/REJECT note. It is
	// fed back as an input adjustment to a subsequent run, never applied to
	// this one.
	Resolution string `json:"resolution,omitempty"`
}
