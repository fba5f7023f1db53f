package domain

// MatchBasis records which matcher produced a pairing.
type MatchBasis string

const (
	MatchBasisExact MatchBasis = "EXACT"
	MatchBasisFuzzy MatchBasis = "FUZZY"
)

// FeatureBreakdown holds the per-field similarity components behind a fuzzy
// score, for explainability.
type FeatureBreakdown struct {
	Site    float64 `json:"site"`
	Date    float64 `json:"date"`
	Service float64 `json:"service"`
	Amount  float64 `json:"amount"`
}

// CandidateMatch is an unresolved pairing proposal. Many candidates may
// reference the same record on either side.
type CandidateMatch struct {
	ClientRecordID string           `json:"client_record_id"`
	LedgerRecordID string           `json:"ledger_record_id"`
	Score          float64          `json:"score"`
	Basis          MatchBasis       `json:"match_basis"`
	Features       FeatureBreakdown `json:"feature_breakdown"`
}

// ResolvedMatch is a final 1:1 pairing. The set of ResolvedMatches for a run
// is a strict 1:1 mapping: no record id appears twice.
type ResolvedMatch struct {
	ClientRecordID string     `json:"client_record_id"`
	LedgerRecordID string     `json:"ledger_record_id"`
	Score          float64    `json:"score"`
	Basis          MatchBasis `json:"match_basis"`
}

// UnmatchedRecord marks a record for which no acceptable pairing exists.
type UnmatchedRecord struct {
	RecordID string `json:"record_id"`
	Source   Source `json:"source"`
}

// Ref returns the unmatched record's cross-source identifier.
func (u UnmatchedRecord) Ref() RecordRef {
	return RecordRef{Source: u.Source, RecordID: u.RecordID}
}

// AmbiguousTie reports candidates the resolver could not order even after the
// full tie-break chain. The pairing is still applied deterministically, but
// the pair is surfaced as a low-confidence exception rather than resolved
// silently.
type AmbiguousTie struct {
	ClientRecordID string  `json:"client_record_id"`
	LedgerRecordID string  `json:"ledger_record_id"`
	Score          float64 `json:"score"`
}
