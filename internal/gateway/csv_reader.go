// Package gateway contains the concrete adapters behind the usecase
// interfaces: CSV record ingestion and SQLite run persistence.
package gateway

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"revrecon/internal/domain"
)

// csvColumns is the expected header of a normalized record export.
var csvColumns = []string{"record_id", "event_date", "site_key", "service_type", "amount", "quantity", "raw_ref"}

// CSVRecordRepository implements the RecordRepository interface for CSV
// exports of normalized records.
type CSVRecordRepository struct{}

// NewCSVRecordRepository creates a new repository instance.
func NewCSVRecordRepository() *CSVRecordRepository {
	return &CSVRecordRepository{}
}

// GetRecords reads one source's CSV export. Rows that cannot be parsed are
// returned quarantined; only I/O and header problems fail the load.
func (r *CSVRecordRepository) GetRecords(ctx context.Context, source domain.Source, path string) ([]domain.NormalizedRecord, []domain.QuarantinedRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s record file %s: %w", source, path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(csvColumns)

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header from %s: %w", path, err)
	}
	for i, want := range csvColumns {
		if header[i] != want {
			return nil, nil, fmt.Errorf("unexpected header in %s: column %d is %q, want %q", path, i, header[i], want)
		}
	}

	var records []domain.NormalizedRecord
	var quarantined []domain.QuarantinedRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("error reading record from %s: %w", path, err)
		}

		rec, parseErr := parseRow(source, row)
		if parseErr != nil {
			quarantined = append(quarantined, domain.QuarantinedRecord{
				RecordID: row[0],
				Source:   source,
				Reason:   parseErr.Error(),
			})
			continue
		}
		records = append(records, rec)
	}
	return records, quarantined, nil
}

func parseRow(source domain.Source, row []string) (domain.NormalizedRecord, error) {
	rec := domain.NormalizedRecord{
		Source:      source,
		RecordID:    row[0],
		SiteKey:     row[2],
		ServiceType: row[3],
		RawRef:      row[6],
	}

	if row[1] != "" {
		date, err := time.Parse("2006-01-02", row[1])
		if err != nil {
			return rec, fmt.Errorf("could not parse event_date %q: %w", row[1], err)
		}
		rec.EventDate = date.UTC()
	}

	cents, err := parseAmountCents(row[4])
	if err != nil {
		return rec, err
	}
	rec.AmountCents = cents

	if row[5] != "" {
		qty, err := decimal.NewFromString(row[5])
		if err != nil {
			return rec, fmt.Errorf("could not parse quantity %q: %w", row[5], err)
		}
		rec.Quantity = qty.InexactFloat64()
	}
	return rec, nil
}

// parseAmountCents converts a dollar string to integer cents exactly.
// Decimal arithmetic avoids the float drift a ParseFloat round trip invites
// on money values.
func parseAmountCents(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("could not parse amount %q: %w", s, err)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
