package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
	"github.com/joseph-ayodele/petfood-scanner/internal/repository"
)

const (
	productSheet = "Products"
	scanSheet    = "Scans"
)

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	products repository.ProductRepository
	scans    repository.ScanRepository
	logger   *slog.Logger
}

func NewService(products repository.ProductRepository, scans repository.ScanRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{products: products, scans: scans, logger: logger}
}

// Options selects what goes into the workbook.
type Options struct {
	Filter       repository.ProductFilter
	IncludeScans bool
	ScanLimit    int
}

// ExportXLSX returns a workbook with one row per stored product and,
// when asked, a second sheet of recent scans.
func (s *Service) ExportXLSX(ctx context.Context, opts Options) ([]byte, error) {
	start := time.Now()

	prods, err := s.products.List(ctx, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", productSheet); err != nil {
		return nil, err
	}
	if err := writeProducts(f, prods); err != nil {
		return nil, err
	}

	var scans []*entity.ScanRecord
	if opts.IncludeScans && s.scans != nil {
		scans, err = s.scans.ListRecent(ctx, opts.ScanLimit)
		if err != nil {
			return nil, fmt.Errorf("query scans: %w", err)
		}
		if _, err := f.NewSheet(scanSheet); err != nil {
			return nil, err
		}
		if err := writeScans(f, scans); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"products", len(prods),
		"scans", len(scans),
		"size", humanize.Bytes(uint64(buf.Len())),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

var productHeaders = []string{
	"Barcode",
	"Name",
	"Brand",
	"Category",
	"Species",
	"kcal/kg",
	"kcal/serving",
	"Protein %",
	"Fat %",
	"Fiber %",
	"Moisture %",
	"Ash %",
	"Ingredients",
	"Source",
	"Quality",
	"Updated",
}

func writeProducts(f *excelize.File, prods []*entity.FoodProduct) error {
	if err := writeHeader(f, productSheet, productHeaders); err != nil {
		return err
	}
	for i, p := range prods {
		row := i + 2
		n := p.Nutrition
		values := []any{
			p.Barcode,
			p.Name,
			p.Brand,
			p.Category,
			p.Species,
			num(n.CaloriesPerKg),
			num(n.CaloriesPerServing),
			num(n.Protein),
			num(n.Fat),
			num(n.Fiber),
			num(n.Moisture),
			num(n.Ash),
			truncate(strings.Join(n.Ingredients, ", "), 500),
			n.Source,
			n.DataQualityScore,
			p.UpdatedAt.Format("2006-01-02"),
		}
		if err := writeRow(f, productSheet, row, values); err != nil {
			return err
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(productSheet, "A", "A", 16) // barcode
	_ = f.SetColWidth(productSheet, "B", "B", 36) // name
	_ = f.SetColWidth(productSheet, "C", "C", 22) // brand
	_ = f.SetColWidth(productSheet, "M", "M", 80) // ingredients
	return nil
}

var scanHeaders = []string{"When", "Barcode", "Method", "Outcome", "Reason", "Confidence", "Quality", "Severity", "Took"}

func writeScans(f *excelize.File, scans []*entity.ScanRecord) error {
	if err := writeHeader(f, scanSheet, scanHeaders); err != nil {
		return err
	}
	for i, r := range scans {
		values := []any{
			r.CreatedAt.Format(time.RFC3339),
			r.Barcode,
			r.Method,
			r.FinalState,
			r.FailureReason,
			r.Confidence,
			r.QualityScore,
			r.Severity,
			r.ProcessingTime.String(),
		}
		if err := writeRow(f, scanSheet, i+2, values); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(scanSheet, "A", "A", 26)
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	vals := make([]any, len(headers))
	for i, h := range headers {
		vals[i] = h
	}
	if err := writeRow(f, sheet, 1, vals); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// num leaves missing values as empty cells.
func num(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
