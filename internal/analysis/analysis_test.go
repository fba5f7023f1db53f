package analysis

import (
	"time"

	"revrecon/internal/config"
	"revrecon/internal/domain"
)

// record builds a NormalizedRecord for tests. Amounts are cents.
func record(source domain.Source, id, date, site, service string, cents int64) domain.NormalizedRecord {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return domain.NormalizedRecord{
		Source:      source,
		RecordID:    id,
		EventDate:   d.UTC(),
		SiteKey:     site,
		ServiceType: service,
		AmountCents: cents,
	}
}

func clientRecord(id, date, site, service string, cents int64) domain.NormalizedRecord {
	return record(domain.SourceClient, id, date, site, service, cents)
}

func ledgerRecord(id, date, site, service string, cents int64) domain.NormalizedRecord {
	return record(domain.SourceLedger, id, date, site, service, cents)
}

func match(clientID, ledgerID string) domain.ResolvedMatch {
	return domain.ResolvedMatch{
		ClientRecordID: clientID,
		LedgerRecordID: ledgerID,
		Score:          1.0,
		Basis:          domain.MatchBasisExact,
	}
}

func unmatchedClient(id string) domain.UnmatchedRecord {
	return domain.UnmatchedRecord{RecordID: id, Source: domain.SourceClient}
}

func unmatchedLedger(id string) domain.UnmatchedRecord {
	return domain.UnmatchedRecord{RecordID: id, Source: domain.SourceLedger}
}

func testConfig() *config.Config {
	return config.Default()
}
