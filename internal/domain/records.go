package domain

import (
	"fmt"
	"time"
)

// Source identifies which system produced a record.
type Source string

const (
	SourceClient Source = "CLIENT"
	SourceLedger Source = "LEDGER"
)

// NormalizedRecord is the canonical representation of a single job or ledger
// entry, produced upstream by the normalization collaborator. Amounts are
// integer cents. Records are immutable once created.
type NormalizedRecord struct {
	Source      Source    `json:"source"`
	RecordID    string    `json:"record_id"`
	EventDate   time.Time `json:"event_date"`
	SiteKey     string    `json:"site_key"`
	ServiceType string    `json:"service_type"`
	AmountCents int64     `json:"amount_cents"`
	// Quantity is the billed unit count. Zero means the source did not
	// report a quantity.
	Quantity float64 `json:"quantity,omitempty"`
	RawRef   string  `json:"raw_ref,omitempty"`
}

// RecordRef uniquely identifies a record across both sources.
type RecordRef struct {
	Source   Source `json:"source"`
	RecordID string `json:"record_id"`
}

// Ref returns the record's cross-source identifier.
func (r NormalizedRecord) Ref() RecordRef {
	return RecordRef{Source: r.Source, RecordID: r.RecordID}
}

func (r RecordRef) String() string {
	return string(r.Source) + "/" + r.RecordID
}

// CompositeKey is the exact-match join key used by the deterministic matcher.
// The amount component is bucketed to whole dollars so cent-level noise does
// not defeat an exact match.
type CompositeKey struct {
	SiteKey       string
	EventDate     string // YYYY-MM-DD
	ServiceType   string
	AmountDollars int64
}

// Key derives the record's deterministic composite key.
func (r NormalizedRecord) Key() CompositeKey {
	return CompositeKey{
		SiteKey:       r.SiteKey,
		EventDate:     r.EventDate.Format(time.DateOnly),
		ServiceType:   r.ServiceType,
		AmountDollars: RoundCentsToDollars(r.AmountCents),
	}
}

func (k CompositeKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%d", k.SiteKey, k.EventDate, k.ServiceType, k.AmountDollars)
}

// RoundCentsToDollars rounds an amount in cents to whole dollars, half away
// from zero. The domain rule is that cents never drive a discrepancy.
func RoundCentsToDollars(cents int64) int64 {
	if cents >= 0 {
		return (cents + 50) / 100
	}
	return -((-cents + 50) / 100)
}

// RecordIndex provides id lookups over one run's input records.
type RecordIndex struct {
	client map[string]NormalizedRecord
	ledger map[string]NormalizedRecord
}

// NewRecordIndex builds an index over both input sets.
func NewRecordIndex(client, ledger []NormalizedRecord) *RecordIndex {
	idx := &RecordIndex{
		client: make(map[string]NormalizedRecord, len(client)),
		ledger: make(map[string]NormalizedRecord, len(ledger)),
	}
	for _, r := range client {
		idx.client[r.RecordID] = r
	}
	for _, r := range ledger {
		idx.ledger[r.RecordID] = r
	}
	return idx
}

// Client returns the client record with the given id.
func (i *RecordIndex) Client(id string) (NormalizedRecord, bool) {
	r, ok := i.client[id]
	return r, ok
}

// Ledger returns the ledger record with the given id.
func (i *RecordIndex) Ledger(id string) (NormalizedRecord, bool) {
	r, ok := i.ledger[id]
	return r, ok
}

// Lookup resolves a RecordRef against the index.
func (i *RecordIndex) Lookup(ref RecordRef) (NormalizedRecord, bool) {
	if ref.Source == SourceClient {
		return i.Client(ref.RecordID)
	}
	return i.Ledger(ref.RecordID)
}
