package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"revrecon/internal/analysis"
	"revrecon/internal/audit"
	"revrecon/internal/config"
	"revrecon/internal/domain"
	"revrecon/internal/matching"
)

// ReconciliationUseCase orchestrates one run of the matching, differencing,
// classification, and routing pipeline.
type ReconciliationUseCase struct {
	repo   RecordRepository
	store  RunStore
	cfg    *config.Config
	logger *slog.Logger

	clock    audit.Clock
	newRunID func() string

	// matchPartition runs the matching passes for one partition. Swappable in
	// tests to simulate a failing partition.
	matchPartition matchPartitionFunc
}

type matchPartitionFunc func(client, ledger []domain.NormalizedRecord, idx *domain.RecordIndex) (matching.DeterministicResult, []domain.CandidateMatch, matching.Resolution)

// Option customizes usecase construction.
type Option func(*ReconciliationUseCase)

// WithClock fixes the audit clock, used by tests.
func WithClock(c audit.Clock) Option {
	return func(uc *ReconciliationUseCase) { uc.clock = c }
}

// WithRunID fixes run id generation, used by tests.
func WithRunID(fn func() string) Option {
	return func(uc *ReconciliationUseCase) { uc.newRunID = fn }
}

// New creates the usecase with its collaborators injected.
func New(repo RecordRepository, store RunStore, cfg *config.Config, logger *slog.Logger, opts ...Option) *ReconciliationUseCase {
	uc := &ReconciliationUseCase{
		repo:     repo,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		clock:    audit.SystemClock{},
		newRunID: uuid.NewString,
	}
	uc.matchPartition = uc.runMatching
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *ReconciliationUseCase) runMatching(client, ledger []domain.NormalizedRecord, idx *domain.RecordIndex) (matching.DeterministicResult, []domain.CandidateMatch, matching.Resolution) {
	det := matching.MatchDeterministic(client, ledger)
	candidates := matching.MatchFuzzy(uc.cfg, det.ResidualClient, det.ResidualLedger)
	resolution := matching.Resolve(det.Matches, candidates, client, ledger, idx)
	return det, candidates, resolution
}

// partitionOutcome is the result of matching and resolving one service-type
// partition. Partitions are independent by construction: both matchers block
// on service type, so no candidate ever crosses a partition boundary.
type partitionOutcome struct {
	service    string
	det        matching.DeterministicResult
	candidates []domain.CandidateMatch
	resolution matching.Resolution
	failure    *domain.PartitionFailure
}

// Reconcile executes a full run over one period's inputs and persists the
// result. The output is a pure function of the inputs and configuration;
// only the run id and audit timestamps differ between re-runs.
func (uc *ReconciliationUseCase) Reconcile(ctx context.Context, clientPath, ledgerPath, period string) (*domain.RunResult, error) {
	// Configuration problems are fatal before any record is touched.
	if err := uc.cfg.Validate(); err != nil {
		return nil, err
	}

	runID := uc.newRunID()
	trail := audit.NewTrail(runID, uc.clock)
	log := uc.logger.With("run_id", runID, "period", period)

	client, quarantinedClient, err := uc.repo.GetRecords(ctx, domain.SourceClient, clientPath)
	if err != nil {
		return nil, fmt.Errorf("could not get client records: %w", err)
	}
	ledger, quarantinedLedger, err := uc.repo.GetRecords(ctx, domain.SourceLedger, ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("could not get ledger records: %w", err)
	}
	log.Info("records loaded", "client", len(client), "ledger", len(ledger))

	// Quarantine pass: every record either enters matching or is reported.
	quarantined := append(quarantinedClient, quarantinedLedger...)
	client, quarantined = quarantine(client, quarantined)
	ledger, quarantined = quarantine(ledger, quarantined)
	trail.Record(domain.StageQuarantine, nil, refsOfQuarantined(quarantined),
		fmt.Sprintf("%d records quarantined", len(quarantined)))
	if len(quarantined) > 0 {
		log.Warn("records quarantined", "count", len(quarantined))
	}

	idx := domain.NewRecordIndex(client, ledger)
	outcomes := uc.runPartitions(client, ledger, idx)

	// Merge partition outputs in sorted partition order so worker scheduling
	// can never influence the result.
	var (
		matches           []domain.ResolvedMatch
		unmatched         []domain.UnmatchedRecord
		ambiguous         []domain.AmbiguousTie
		failures          []domain.PartitionFailure
		duplicateSuspects = make(map[domain.RecordRef]bool)
	)
	for _, outcome := range outcomes {
		if outcome.failure != nil {
			failures = append(failures, *outcome.failure)
			log.Error("partition failed", "service_type", outcome.failure.ServiceType, "error", outcome.failure.Err)
			continue
		}
		trail.Record(domain.StageExactMatch, nil, refsOfMatches(outcome.det.Matches),
			fmt.Sprintf("service %s: %d exact matches", outcome.service, len(outcome.det.Matches)))
		trail.Record(domain.StageFuzzyMatch, nil, refsOfCandidates(outcome.candidates),
			fmt.Sprintf("service %s: %d fuzzy candidates", outcome.service, len(outcome.candidates)))
		trail.Record(domain.StageResolve, refsOfCandidates(outcome.candidates), refsOfMatches(outcome.resolution.Matches),
			fmt.Sprintf("service %s: %d resolved, %d unmatched", outcome.service,
				len(outcome.resolution.Matches), len(outcome.resolution.Unmatched)))
		if n := len(outcome.resolution.Ambiguous); n > 0 {
			trail.Record(domain.StageResolve, nil, refsOfTies(outcome.resolution.Ambiguous),
				fmt.Sprintf("service %s: %d ambiguous ties", outcome.service, n))
			log.Warn("ambiguous ties detected", "service_type", outcome.service, "count", n)
		}

		matches = append(matches, outcome.resolution.Matches...)
		unmatched = append(unmatched, outcome.resolution.Unmatched...)
		ambiguous = append(ambiguous, outcome.resolution.Ambiguous...)
		for ref := range outcome.det.DuplicateSuspects {
			duplicateSuspects[ref] = true
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ClientRecordID < matches[j].ClientRecordID })
	sort.Slice(unmatched, func(i, j int) bool {
		if unmatched[i].Source != unmatched[j].Source {
			return unmatched[i].Source == domain.SourceClient
		}
		return unmatched[i].RecordID < unmatched[j].RecordID
	})

	differences := analysis.Diff(matches, unmatched, idx)
	trail.Record(domain.StageDiff, refsOfMatches(matches), nil,
		fmt.Sprintf("%d differences computed", len(differences)))

	clsCtx := analysis.NewContext(uc.cfg, idx, client, ledger, duplicateSuspects, ambiguous, differences)
	exceptions := analysis.Classify(differences, clsCtx)
	trail.Record(domain.StageClassify, nil, refsOfExceptions(exceptions),
		fmt.Sprintf("%d exceptions classified", len(exceptions)))

	decisions := analysis.Route(exceptions, uc.cfg)
	trail.Record(domain.StageRoute, refsOfExceptions(exceptions), nil,
		fmt.Sprintf("%d routing decisions", len(decisions)))

	summary := analysis.Summarize(period, len(client)+countSource(quarantined, domain.SourceClient),
		len(ledger)+countSource(quarantined, domain.SourceLedger),
		differences, decisions, len(quarantined), uc.cfg)

	status := runStatus(len(outcomes), failures, quarantined, ambiguous)
	trail.Record(domain.StageRunComplete, nil, nil, string(status))

	result := &domain.RunResult{
		RunID:              runID,
		Period:             period,
		Status:             status,
		Summary:            summary,
		Matches:            matches,
		Unmatched:          unmatched,
		Ambiguous:          ambiguous,
		Differences:        differences,
		Exceptions:         exceptions,
		Decisions:          decisions,
		Rows:               buildRows(differences, decisions, idx),
		QuarantinedRecords: quarantined,
		PartitionFailures:  failures,
		AuditEvents:        trail.Events(),
	}

	if uc.store != nil {
		if err := uc.store.SaveRun(ctx, result); err != nil {
			return nil, fmt.Errorf("could not persist run %s: %w", runID, err)
		}
	}

	log.Info("run complete",
		"status", status,
		"matched", summary.MatchedPairs,
		"auto_resolved", summary.AutoResolved,
		"escalated", summary.Escalated,
		"quarantined", summary.Quarantined)
	return result, nil
}

// runPartitions matches and resolves each service-type partition on a bounded
// worker pool. A panicking partition is isolated as a PartitionFailure; the
// others proceed. Outcomes come back sorted by partition key.
func (uc *ReconciliationUseCase) runPartitions(client, ledger []domain.NormalizedRecord, idx *domain.RecordIndex) []partitionOutcome {
	clientParts := make(map[string][]domain.NormalizedRecord)
	ledgerParts := make(map[string][]domain.NormalizedRecord)
	for _, r := range client {
		clientParts[r.ServiceType] = append(clientParts[r.ServiceType], r)
	}
	for _, r := range ledger {
		ledgerParts[r.ServiceType] = append(ledgerParts[r.ServiceType], r)
	}

	services := make([]string, 0, len(clientParts))
	seen := make(map[string]bool)
	for svc := range clientParts {
		services = append(services, svc)
		seen[svc] = true
	}
	for svc := range ledgerParts {
		if !seen[svc] {
			services = append(services, svc)
		}
	}
	sort.Strings(services)

	workers := uc.cfg.Workers
	if workers > len(services) {
		workers = len(services)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	results := make(chan partitionOutcome, len(services))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for svc := range jobs {
				results <- uc.runPartition(svc, clientParts[svc], ledgerParts[svc], idx)
			}
		}()
	}
	for _, svc := range services {
		jobs <- svc
	}
	close(jobs)
	wg.Wait()
	close(results)

	outcomes := make([]partitionOutcome, 0, len(services))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].service < outcomes[j].service })
	return outcomes
}

func (uc *ReconciliationUseCase) runPartition(service string, client, ledger []domain.NormalizedRecord, idx *domain.RecordIndex) (outcome partitionOutcome) {
	outcome.service = service
	defer func() {
		if r := recover(); r != nil {
			outcome.failure = &domain.PartitionFailure{
				ServiceType: service,
				Err:         fmt.Sprintf("%v", r),
			}
		}
	}()

	outcome.det, outcome.candidates, outcome.resolution = uc.matchPartition(client, ledger, idx)
	return outcome
}

// quarantine splits off records missing a required field, appending them to
// the running quarantine list.
func quarantine(records []domain.NormalizedRecord, quarantined []domain.QuarantinedRecord) ([]domain.NormalizedRecord, []domain.QuarantinedRecord) {
	kept := records[:0]
	for _, r := range records {
		if err := r.Validate(); err != nil {
			quarantined = append(quarantined, domain.QuarantinedRecord{
				RecordID: r.RecordID,
				Source:   r.Source,
				Reason:   err.Error(),
			})
			continue
		}
		kept = append(kept, r)
	}
	return kept, quarantined
}

func runStatus(partitions int, failures []domain.PartitionFailure,
	quarantined []domain.QuarantinedRecord, ambiguous []domain.AmbiguousTie) domain.RunStatus {
	if partitions > 0 && len(failures) == partitions {
		return domain.RunFailed
	}
	if len(failures) > 0 || len(quarantined) > 0 || len(ambiguous) > 0 {
		return domain.RunCompleteWithWarnings
	}
	return domain.RunComplete
}

// buildRows flattens differences and their dispositions into report rows.
func buildRows(differences []domain.DifferenceRecord, decisions []domain.RoutingDecision, idx *domain.RecordIndex) []domain.ReportRow {
	decisionByRef := make(map[string]domain.RoutingDecision, len(decisions))
	for _, dec := range decisions {
		decisionByRef[differenceRef(dec.Exception.Difference)] = dec
	}

	rows := make([]domain.ReportRow, 0, len(differences))
	for _, d := range differences {
		var row domain.ReportRow
		if d.Match != nil {
			c, _ := idx.Client(d.Match.ClientRecordID)
			l, _ := idx.Ledger(d.Match.LedgerRecordID)
			row = domain.ReportRow{
				ClientRecordID:    c.RecordID,
				LedgerRecordID:    l.RecordID,
				SiteKey:           c.SiteKey,
				ServiceType:       c.ServiceType,
				EventDate:         c.EventDate.Format("2006-01-02"),
				ClientAmountCents: c.AmountCents,
				LedgerAmountCents: l.AmountCents,
				MatchBasis:        d.Match.Basis,
				Score:             d.Match.Score,
			}
		} else {
			rec, _ := idx.Lookup(d.Unmatched.Ref())
			row = domain.ReportRow{
				SiteKey:     rec.SiteKey,
				ServiceType: rec.ServiceType,
				EventDate:   rec.EventDate.Format("2006-01-02"),
			}
			if d.Unmatched.Source == domain.SourceClient {
				row.ClientRecordID = rec.RecordID
				row.ClientAmountCents = rec.AmountCents
			} else {
				row.LedgerRecordID = rec.RecordID
				row.LedgerAmountCents = rec.AmountCents
			}
		}
		row.DollarDelta = d.DollarDelta
		row.PercentDelta = d.PercentDelta
		row.Direction = d.Direction

		if dec, ok := decisionByRef[differenceRef(d)]; ok {
			row.Category = dec.Exception.Category
			row.Confidence = dec.Exception.Confidence
			row.Action = dec.Action
		}
		rows = append(rows, row)
	}
	return rows
}

func differenceRef(d domain.DifferenceRecord) string {
	if d.Match != nil {
		return d.Match.ClientRecordID + "<->" + d.Match.LedgerRecordID
	}
	return d.Unmatched.Ref().String()
}

func countSource(quarantined []domain.QuarantinedRecord, source domain.Source) int {
	n := 0
	for _, q := range quarantined {
		if q.Source == source {
			n++
		}
	}
	return n
}

func refsOfQuarantined(records []domain.QuarantinedRecord) []string {
	refs := make([]string, 0, len(records))
	for _, q := range records {
		refs = append(refs, domain.RecordRef{Source: q.Source, RecordID: q.RecordID}.String())
	}
	return refs
}

func refsOfMatches(matches []domain.ResolvedMatch) []string {
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, m.ClientRecordID+"<->"+m.LedgerRecordID)
	}
	return refs
}

func refsOfCandidates(candidates []domain.CandidateMatch) []string {
	refs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		refs = append(refs, fmt.Sprintf("%s~%s@%.3f", c.ClientRecordID, c.LedgerRecordID, c.Score))
	}
	return refs
}

func refsOfTies(ties []domain.AmbiguousTie) []string {
	refs := make([]string, 0, len(ties))
	for _, tie := range ties {
		refs = append(refs, tie.ClientRecordID+"<->"+tie.LedgerRecordID)
	}
	return refs
}

func refsOfExceptions(exceptions []domain.ClassifiedException) []string {
	refs := make([]string, 0, len(exceptions))
	for _, exc := range exceptions {
		refs = append(refs, differenceRef(exc.Difference)+":"+string(exc.Category))
	}
	return refs
}
