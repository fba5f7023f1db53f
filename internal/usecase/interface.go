package usecase

import (
	"context"

	"revrecon/internal/domain"
)

// RecordRepository fetches one source's normalized records for a period. Rows
// that cannot be represented as a NormalizedRecord come back quarantined, not
// silently dropped. The usecase layer depends on this interface, not on a
// concrete implementation.
//
//go:generate mockgen -destination=mocks/mock_interfaces.go -source=interface.go RecordRepository,RunStore
type RecordRepository interface {
	GetRecords(ctx context.Context, source domain.Source, path string) ([]domain.NormalizedRecord, []domain.QuarantinedRecord, error)
}

// RunStore persists completed runs and serves the review queue. Saved runs
// are immutable; a re-run inserts a fresh run id rather than touching prior
// results. Only the review status of a queue entry is ever updated, and that
// on behalf of the human reviewer.
type RunStore interface {
	SaveRun(ctx context.Context, result *domain.RunResult) error
	GetRun(ctx context.Context, runID string) (*domain.RunResult, error)
	ListRuns(ctx context.Context) ([]domain.RunResult, error)
	ListExceptions(ctx context.Context, runID string, pendingOnly bool) ([]domain.QueueEntry, error)
	ResolveException(ctx context.Context, entryID int64, status domain.ReviewStatus, note string) error
	ListAuditEvents(ctx context.Context, runID string) ([]domain.AuditEvent, error)
}
