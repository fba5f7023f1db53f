package domain

// Direction describes which side of a pairing carries the higher amount, or
// which side is missing entirely.
type Direction string

const (
	DirectionClientHigher  Direction = "CLIENT_HIGHER"
	DirectionLedgerHigher  Direction = "LEDGER_HIGHER"
	DirectionEqual         Direction = "EQUAL"
	DirectionMissingClient Direction = "MISSING_CLIENT"
	DirectionMissingLedger Direction = "MISSING_LEDGER"
)

// DifferenceRecord quantifies the financial variance of one resolved match or
// one unmatched singleton. Exactly one of Match and Unmatched is set.
type DifferenceRecord struct {
	Match     *ResolvedMatch   `json:"match,omitempty"`
	Unmatched *UnmatchedRecord `json:"unmatched,omitempty"`
	// DollarDelta is client minus ledger, rounded to whole dollars. For a
	// missing side it is the signed amount of the known side.
	DollarDelta  int64     `json:"dollar_delta"`
	PercentDelta float64   `json:"percent_delta"`
	Direction    Direction `json:"direction"`
}

// IsMissing reports whether the difference describes an unmatched singleton.
func (d DifferenceRecord) IsMissing() bool {
	return d.Unmatched != nil
}
