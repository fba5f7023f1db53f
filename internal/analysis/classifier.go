package analysis

import (
	"fmt"
	"math"

	"revrecon/internal/config"
	"revrecon/internal/domain"
)

// rateRatioEpsilon is the relative slack when comparing client/ledger amount
// ratios across pairs of the same site and service.
const rateRatioEpsilon = 0.005

// Context carries the cross-record evidence the rules consult. It is built
// once per run from the resolved outputs and never mutated during
// classification.
type Context struct {
	cfg               *config.Config
	idx               *domain.RecordIndex
	duplicateSuspects map[domain.RecordRef]bool
	ambiguousPairs    map[string]bool
	// datelessKeys maps (site, service, dollars) to event dates per source,
	// for the timing-difference lookup.
	datelessKeys map[datelessKey][]keyOccurrence
	// pairRatios collects client/ledger amount ratios of differing matched
	// pairs per (site, service), for rate-change corroboration.
	pairRatios map[siteService][]float64
}

type datelessKey struct {
	SiteKey       string
	ServiceType   string
	AmountDollars int64
}

type keyOccurrence struct {
	source domain.Source
	date   string // YYYY-MM-DD
	days   int64  // days since epoch, for distance math
}

type siteService struct {
	SiteKey     string
	ServiceType string
}

// NewContext assembles the classification context for one run.
func NewContext(cfg *config.Config, idx *domain.RecordIndex,
	client, ledger []domain.NormalizedRecord,
	duplicateSuspects map[domain.RecordRef]bool,
	ambiguous []domain.AmbiguousTie,
	differences []domain.DifferenceRecord) *Context {

	ctx := &Context{
		cfg:               cfg,
		idx:               idx,
		duplicateSuspects: duplicateSuspects,
		ambiguousPairs:    make(map[string]bool, len(ambiguous)),
		datelessKeys:      make(map[datelessKey][]keyOccurrence),
		pairRatios:        make(map[siteService][]float64),
	}
	if ctx.duplicateSuspects == nil {
		ctx.duplicateSuspects = map[domain.RecordRef]bool{}
	}
	for _, tie := range ambiguous {
		ctx.ambiguousPairs[tie.ClientRecordID+"|"+tie.LedgerRecordID] = true
	}
	for _, r := range client {
		ctx.addOccurrence(r)
	}
	for _, r := range ledger {
		ctx.addOccurrence(r)
	}
	for _, d := range differences {
		if d.Match == nil || d.DollarDelta == 0 {
			continue
		}
		c, _ := idx.Client(d.Match.ClientRecordID)
		l, _ := idx.Ledger(d.Match.LedgerRecordID)
		if l.AmountCents == 0 {
			continue
		}
		ss := siteService{SiteKey: l.SiteKey, ServiceType: l.ServiceType}
		ctx.pairRatios[ss] = append(ctx.pairRatios[ss], float64(c.AmountCents)/float64(l.AmountCents))
	}
	return ctx
}

func (ctx *Context) addOccurrence(r domain.NormalizedRecord) {
	key := datelessKey{
		SiteKey:       r.SiteKey,
		ServiceType:   r.ServiceType,
		AmountDollars: domain.RoundCentsToDollars(r.AmountCents),
	}
	ctx.datelessKeys[key] = append(ctx.datelessKeys[key], keyOccurrence{
		source: r.Source,
		date:   r.EventDate.Format("2006-01-02"),
		days:   r.EventDate.Unix() / 86400,
	})
}

// rule is one tagged predicate in the ordered table. A rule either claims a
// difference with a confidence and evidence, or passes.
type rule struct {
	tag   domain.Category
	apply func(d domain.DifferenceRecord, ctx *Context) (domain.ClassifiedException, bool)
}

// Classify assigns a root-cause category to every difference that represents
// an actual exception: a non-zero whole-dollar delta, a missing side, or a
// pairing the resolver flagged as an ambiguous tie. Rules run in the
// configured order with first-match-wins semantics.
func Classify(differences []domain.DifferenceRecord, ctx *Context) []domain.ClassifiedException {
	table := buildTable(ctx.cfg.RuleTable)

	var exceptions []domain.ClassifiedException
	for _, d := range differences {
		// A pairing the resolver flagged as an ambiguous tie is never
		// trusted enough to classify normally, zero delta or not.
		if d.Match != nil && ctx.ambiguousPairs[d.Match.ClientRecordID+"|"+d.Match.LedgerRecordID] {
			exceptions = append(exceptions, unclassifiedException(d, ctx,
				"resolver tie-break exhausted: identical candidates for this pairing"))
			continue
		}
		if !d.IsMissing() && d.DollarDelta == 0 {
			continue // within tolerance, no exception exists
		}
		for _, r := range table {
			if exc, ok := r.apply(d, ctx); ok {
				exceptions = append(exceptions, exc)
				break
			}
		}
	}
	return exceptions
}

// buildTable materializes the configured rule order. Config validation has
// already rejected unknown tags and guaranteed the UNCLASSIFIED terminator.
func buildTable(tags []string) []rule {
	all := map[domain.Category]rule{
		domain.CategoryDuplicate:        {tag: domain.CategoryDuplicate, apply: applyDuplicate},
		domain.CategoryVolumeMismatch:   {tag: domain.CategoryVolumeMismatch, apply: applyVolumeMismatch},
		domain.CategoryRateChange:       {tag: domain.CategoryRateChange, apply: applyRateChange},
		domain.CategoryTimingDifference: {tag: domain.CategoryTimingDifference, apply: applyTimingDifference},
		domain.CategoryMissingRecord:    {tag: domain.CategoryMissingRecord, apply: applyMissingRecord},
		domain.CategoryUnclassified:     {tag: domain.CategoryUnclassified, apply: applyUnclassified},
	}
	table := make([]rule, 0, len(tags))
	for _, tag := range tags {
		table = append(table, all[domain.Category(tag)])
	}
	return table
}

func applyDuplicate(d domain.DifferenceRecord, ctx *Context) (domain.ClassifiedException, bool) {
	if d.Unmatched == nil || !ctx.duplicateSuspects[d.Unmatched.Ref()] {
		return domain.ClassifiedException{}, false
	}
	rec, _ := ctx.idx.Lookup(d.Unmatched.Ref())
	return domain.ClassifiedException{
		Difference: d,
		Category:   domain.CategoryDuplicate,
		Confidence: 0.85,
		Evidence: fmt.Sprintf("record %s collides with an already-paired record on exact key %s",
			d.Unmatched.Ref(), rec.Key()),
		SuggestedFix: "remove the duplicate entry",
	}, true
}

func applyVolumeMismatch(d domain.DifferenceRecord, ctx *Context) (domain.ClassifiedException, bool) {
	if d.Match == nil {
		return domain.ClassifiedException{}, false
	}
	c, _ := ctx.idx.Client(d.Match.ClientRecordID)
	l, _ := ctx.idx.Ledger(d.Match.LedgerRecordID)
	if c.Quantity <= 0 || l.Quantity <= 0 {
		return domain.ClassifiedException{}, false
	}
	tol := ctx.cfg.QuantityTolerancePct / 100
	qtyDiff := relativeDiff(c.Quantity, l.Quantity)
	unitDiff := relativeDiff(float64(c.AmountCents)/c.Quantity, float64(l.AmountCents)/l.Quantity)
	if qtyDiff <= tol || unitDiff > tol {
		return domain.ClassifiedException{}, false
	}
	return domain.ClassifiedException{
		Difference: d,
		Category:   domain.CategoryVolumeMismatch,
		Confidence: 0.80,
		Evidence: fmt.Sprintf("quantities differ (client %.2f vs ledger %.2f) while unit price matches",
			c.Quantity, l.Quantity),
		SuggestedFix: fmt.Sprintf("confirm billed quantity against ledger value %.2f", l.Quantity),
	}, true
}

func applyRateChange(d domain.DifferenceRecord, ctx *Context) (domain.ClassifiedException, bool) {
	if d.Match == nil || d.DollarDelta == 0 {
		return domain.ClassifiedException{}, false
	}
	if math.Abs(d.PercentDelta)*100 > ctx.cfg.RateChangeBandPct {
		return domain.ClassifiedException{}, false
	}
	c, _ := ctx.idx.Client(d.Match.ClientRecordID)
	l, _ := ctx.idx.Ledger(d.Match.LedgerRecordID)
	if l.AmountCents == 0 {
		return domain.ClassifiedException{}, false
	}
	ratio := float64(c.AmountCents) / float64(l.AmountCents)
	ss := siteService{SiteKey: l.SiteKey, ServiceType: l.ServiceType}
	corroborating := 0
	for _, other := range ctx.pairRatios[ss] {
		if relativeDiff(ratio, other) <= rateRatioEpsilon {
			corroborating++
		}
	}
	// The pair's own ratio is in the index; a rate change needs at least one
	// other pair at the same site and service moving by the same factor.
	if corroborating < 2 {
		return domain.ClassifiedException{}, false
	}
	return domain.ClassifiedException{
		Difference: d,
		Category:   domain.CategoryRateChange,
		Confidence: 0.90,
		Evidence: fmt.Sprintf("client vs ledger amounts differ by %.2f%% ($%d), factor %.4f consistent across %d pairs at %s/%s",
			d.PercentDelta*100, abs64(d.DollarDelta), ratio, corroborating, l.SiteKey, l.ServiceType),
		SuggestedFix: "verify the current contracted rate for this site and service",
	}, true
}

func applyTimingDifference(d domain.DifferenceRecord, ctx *Context) (domain.ClassifiedException, bool) {
	if d.Unmatched == nil {
		return domain.ClassifiedException{}, false
	}
	rec, ok := ctx.idx.Lookup(d.Unmatched.Ref())
	if !ok {
		return domain.ClassifiedException{}, false
	}
	key := datelessKey{
		SiteKey:       rec.SiteKey,
		ServiceType:   rec.ServiceType,
		AmountDollars: domain.RoundCentsToDollars(rec.AmountCents),
	}
	window := int64(ctx.cfg.DateWindowDays)
	slack := int64(ctx.cfg.TimingSlackDays)
	recDays := rec.EventDate.Unix() / 86400
	for _, occ := range ctx.datelessKeys[key] {
		if occ.source == rec.Source {
			continue
		}
		dist := occ.days - recDays
		if dist < 0 {
			dist = -dist
		}
		// Just outside the fuzzy window: close enough to be the same event
		// booked in a different period.
		if dist > window && dist <= window+slack {
			return domain.ClassifiedException{
				Difference: d,
				Category:   domain.CategoryTimingDifference,
				Confidence: 0.75,
				Evidence: fmt.Sprintf("same-key %s record exists on %s, %d days outside the %d-day match window",
					occ.source, occ.date, dist-window, window),
				SuggestedFix: "carry the record into the adjacent period's run",
			}, true
		}
	}
	return domain.ClassifiedException{}, false
}

func applyMissingRecord(d domain.DifferenceRecord, ctx *Context) (domain.ClassifiedException, bool) {
	if d.Unmatched == nil {
		return domain.ClassifiedException{}, false
	}
	evidence := "job present in internal ledger but missing from client data"
	fix := "request the missing job from the client feed"
	if d.Unmatched.Source == domain.SourceClient {
		evidence = "job missing from internal ledger"
		fix = "book the missing job in the ledger"
	}
	return domain.ClassifiedException{
		Difference:   d,
		Category:     domain.CategoryMissingRecord,
		Confidence:   0.50,
		Evidence:     fmt.Sprintf("no plausible counterpart found for %s: %s", d.Unmatched.Ref(), evidence),
		SuggestedFix: fix,
	}, true
}

func applyUnclassified(d domain.DifferenceRecord, ctx *Context) (domain.ClassifiedException, bool) {
	return unclassifiedException(d, ctx, fmt.Sprintf(
		"no rule explains a $%d variance (%.2f%%)", abs64(d.DollarDelta), d.PercentDelta*100)), true
}

// unclassifiedException builds the fallback exception. Its confidence is
// forced below the auto-resolve floor so it always escalates.
func unclassifiedException(d domain.DifferenceRecord, ctx *Context, evidence string) domain.ClassifiedException {
	confidence := 0.10
	if half := ctx.cfg.AutoResolveConfidenceFloor / 2; half < confidence {
		confidence = half
	}
	return domain.ClassifiedException{
		Difference: d,
		Category:   domain.CategoryUnclassified,
		Confidence: confidence,
		Evidence:   evidence,
	}
}

func relativeDiff(a, b float64) float64 {
	larger := math.Abs(a)
	if math.Abs(b) > larger {
		larger = math.Abs(b)
	}
	if larger == 0 {
		return 0
	}
	return math.Abs(a-b) / larger
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
