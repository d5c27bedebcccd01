package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
	"github.com/joseph-ayodele/petfood-scanner/internal/repository"
)

type stubProducts struct {
	repository.ProductRepository
	list []*entity.FoodProduct
}

func (s stubProducts) List(context.Context, repository.ProductFilter) ([]*entity.FoodProduct, error) {
	return s.list, nil
}

type stubScans struct {
	repository.ScanRepository
	list []*entity.ScanRecord
}

func (s stubScans) ListRecent(context.Context, int) ([]*entity.ScanRecord, error) {
	return s.list, nil
}

func TestExportXLSX(t *testing.T) {
	kcal := 3613.0
	prods := stubProducts{list: []*entity.FoodProduct{{
		ID:      uuid.New(),
		Barcode: "0123456789012",
		Name:    "Adult Chicken & Rice",
		Nutrition: entity.NutritionalInfo{
			CaloriesPerKg: &kcal,
			Ingredients:   []string{"Chicken", "Rice"},
			Source:        "catalog",
		},
		UpdatedAt: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
	}}}
	scans := stubScans{list: []*entity.ScanRecord{{Barcode: "0123456789012", Method: "hybrid", FinalState: "completed"}}}
	svc := NewService(prods, scans, slog.New(slog.NewTextHandler(io.Discard, nil)))

	b, err := svc.ExportXLSX(context.Background(), Options{IncludeScans: true})
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows(productSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one product, got %d rows", len(rows))
	}
	if rows[1][1] != "Adult Chicken & Rice" || rows[1][5] != "3613" || rows[1][12] != "Chicken, Rice" {
		t.Fatalf("unexpected product row: %q", rows[1])
	}
	if rows[1][6] != "" {
		t.Fatalf("missing value should be empty, got %q", rows[1][6])
	}

	scanRows, err := f.GetRows(scanSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(scanRows) != 2 || scanRows[1][2] != "hybrid" {
		t.Fatalf("unexpected scan rows: %q", scanRows)
	}
}

func TestExportWithoutScans(t *testing.T) {
	svc := NewService(stubProducts{}, nil, nil)
	b, err := svc.ExportXLSX(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got := f.GetSheetList(); len(got) != 1 || got[0] != productSheet {
		t.Fatalf("sheets = %v", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abc", 4); got != "abc" {
		t.Fatalf("got %q", got)
	}
}
