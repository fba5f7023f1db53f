package domain

import "fmt"

// MalformedRecordError reports an input record missing a required field. The
// record is quarantined and the run continues.
type MalformedRecordError struct {
	Source   Source
	RecordID string
	Field    string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record %q: missing %s", e.Source, e.RecordID, e.Field)
}

// Validate checks that a record carries every field matching depends on.
// Amount and quantity have no validity constraint beyond parsing; zero
// amounts are legitimate business events.
func (r NormalizedRecord) Validate() error {
	if r.RecordID == "" {
		return &MalformedRecordError{Source: r.Source, RecordID: r.RecordID, Field: "record_id"}
	}
	if r.EventDate.IsZero() {
		return &MalformedRecordError{Source: r.Source, RecordID: r.RecordID, Field: "event_date"}
	}
	if r.SiteKey == "" {
		return &MalformedRecordError{Source: r.Source, RecordID: r.RecordID, Field: "site_key"}
	}
	if r.ServiceType == "" {
		return &MalformedRecordError{Source: r.Source, RecordID: r.RecordID, Field: "service_type"}
	}
	return nil
}
