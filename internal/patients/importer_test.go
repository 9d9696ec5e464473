package patients

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestParseImport(t *testing.T) {
	input := strings.Join([]string{
		"1001, 山田 太郎",
		"",
		"garbage line without a comma",
		"１００２,佐藤花子",
		" , 名無し",
		"1003,",
		"1004,鈴木一郎",
	}, "\n")

	records, err := ParseImport(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseImport returned error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %#v", len(records), records)
	}
	if records[0].PatientID != "1001" || records[0].Name != "山田太郎" {
		t.Fatalf("expected normalized first record, got %#v", records[0])
	}
	if records[1].PatientID != "1002" {
		t.Fatalf("expected full-width digits folded, got %#v", records[1])
	}
	if records[2].PatientID != "1004" || records[2].Name != "鈴木一郎" {
		t.Fatalf("unexpected last record: %#v", records[2])
	}
}

func TestImporter_ImportCountsSubmittedRecords(t *testing.T) {
	repo := NewInMemoryRepository()
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	imp := NewImporter(repo, func() time.Time { return at })

	n, err := imp.Import(context.Background(), strings.NewReader("1001,山田太郎\n1002,佐藤花子\n"))
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 imported, got %d", n)
	}

	p, err := repo.GetByID(context.Background(), "1001")
	if err != nil || p == nil {
		t.Fatalf("expected stored patient, got %v %v", p, err)
	}
	if !p.UpdatedAt.Equal(at) {
		t.Fatalf("expected import timestamp, got %v", p.UpdatedAt)
	}
}

func TestImporter_EmptyInputIsNoop(t *testing.T) {
	imp := NewImporter(NewInMemoryRepository(), nil)
	n, err := imp.Import(context.Background(), strings.NewReader("\n\n"))
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 imported, got %d", n)
	}
}

func TestImporter_UpsertOverwritesName(t *testing.T) {
	repo := NewInMemoryRepository()
	imp := NewImporter(repo, nil)

	if _, err := imp.Import(context.Background(), strings.NewReader("1001,山田太郎")); err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	if _, err := imp.Import(context.Background(), strings.NewReader("1001,山田次郎")); err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	p, _ := repo.GetByID(context.Background(), "1001")
	if p.Name != "山田次郎" {
		t.Fatalf("expected overwritten name, got %q", p.Name)
	}
}
