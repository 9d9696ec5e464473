package patients

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// BulkUpserter is the write surface the importer needs.
type BulkUpserter interface {
	BulkUpsert(ctx context.Context, records []ImportRecord, at time.Time) error
}

// Importer parses the staff bulk-registration format: one "patientId, name"
// pair per line, no header, no quoting. Blank and malformed lines are
// skipped silently; the desk pastes these straight out of the billing
// system and partial garbage is expected.
type Importer struct {
	repo BulkUpserter
	now  func() time.Time
}

// NewImporter creates an importer stamping records with now.
func NewImporter(repo BulkUpserter, now func() time.Time) *Importer {
	if now == nil {
		now = time.Now
	}
	return &Importer{repo: repo, now: now}
}

// Import reads the whole input and upserts every parseable line. It
// returns the number of records submitted to the store.
func (i *Importer) Import(ctx context.Context, r io.Reader) (int, error) {
	records, err := ParseImport(r)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := i.repo.BulkUpsert(ctx, records, i.now()); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ParseImport extracts the valid records from the line format.
func ParseImport(r io.Reader) ([]ImportRecord, error) {
	var records []ImportRecord
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, name, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		id = NormalizeDigits(id)
		// Imported names are stored in normalized form; every comparison
		// in the system is whitespace-insensitive anyway.
		name = NormalizeName(name)
		if id == "" || name == "" {
			continue
		}
		records = append(records, ImportRecord{PatientID: id, Name: name})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("patients: read import input: %w", err)
	}
	return records, nil
}
