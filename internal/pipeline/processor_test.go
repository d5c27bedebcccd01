package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/petfood-scanner/constants"
	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
	"github.com/joseph-ayodele/petfood-scanner/internal/ocr"
	"github.com/joseph-ayodele/petfood-scanner/internal/repository"
)

type fakeExtractor struct {
	res ocr.Result
	err error
}

func (f fakeExtractor) Extract(context.Context, string) (ocr.Result, error) { return f.res, f.err }

type memProducts struct {
	repository.ProductRepository
	mu    sync.Mutex
	saved []*entity.FoodProduct
}

func (m *memProducts) Upsert(_ context.Context, p *entity.FoodProduct) (*entity.FoodProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.saved = append(m.saved, &cp)
	return &cp, nil
}

type memJobs struct {
	repository.LabelJobRepository
	mu   sync.Mutex
	jobs map[uuid.UUID]*entity.LabelJob
}

func newMemJobs() *memJobs { return &memJobs{jobs: map[uuid.UUID]*entity.LabelJob{}} }

func (m *memJobs) Start(_ context.Context, path, format string) (*entity.LabelJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := &entity.LabelJob{ID: uuid.New(), SourcePath: path, Format: format, Status: string(constants.JobStatusQueued)}
	m.jobs[j.ID] = j
	return j, nil
}

func (m *memJobs) MarkRunning(_ context.Context, id uuid.UUID) error {
	return m.set(id, func(j *entity.LabelJob) { j.Status = string(constants.JobStatusRunning) })
}

func (m *memJobs) FinishSuccess(_ context.Context, id uuid.UUID, pid *uuid.UUID, method string, conf float64) error {
	return m.set(id, func(j *entity.LabelJob) {
		j.Status, j.ProductID, j.Method, j.Confidence = string(constants.JobStatusParsed), pid, method, conf
	})
}

func (m *memJobs) FinishFailure(_ context.Context, id uuid.UUID, msg string) error {
	return m.set(id, func(j *entity.LabelJob) { j.Status, j.ErrorMessage = string(constants.JobStatusFailed), &msg })
}

func (m *memJobs) set(id uuid.UUID, fn func(*entity.LabelJob)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return common.ErrNotFound
	}
	fn(j)
	return nil
}

func (m *memJobs) status(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id].Status
}

const label = `Grain Free Turkey Dinner
Ingredients: Turkey, Peas, Sweet Potatoes, Salmon Oil
Crude Protein (min) 30%
Crude Fat (min) 16%
Moisture (max) 10%
Calorie Content: 3700 kcal/kg, 410 kcal/cup`

func newTestProcessor(ex TextExtractor) (*Processor, *memProducts, *memJobs) {
	products, jobs := &memProducts{}, newMemJobs()
	p := NewProcessor(slog.New(slog.NewTextHandler(io.Discard, nil)), ex, products, jobs, nil)
	return p, products, jobs
}

func TestProcessLabel(t *testing.T) {
	p, products, jobs := newTestProcessor(fakeExtractor{res: ocr.Result{Text: label, Method: "tesseract", Confidence: 0.9, SourceType: constants.IMAGE}})

	res, err := p.ProcessLabel(context.Background(), "/inbox/0123456789012.png")
	if err != nil {
		t.Fatal(err)
	}
	if jobs.status(res.JobID) != string(constants.JobStatusParsed) {
		t.Fatalf("job status = %s", jobs.status(res.JobID))
	}
	if len(products.saved) != 1 {
		t.Fatalf("expected one stored product, got %d", len(products.saved))
	}
	fp := res.Product
	if fp.Name != "Grain Free Turkey Dinner" || fp.Barcode != "0123456789012" || fp.Nutrition.Source != constants.SourceUserUpload {
		t.Fatalf("unexpected product: %+v", fp)
	}
	if fp.Nutrition.CaloriesPerKg == nil || *fp.Nutrition.CaloriesPerKg != 3700 {
		t.Fatalf("kcal/kg = %v", fp.Nutrition.CaloriesPerKg)
	}
	if fp.Nutrition.CaloriesPerServing == nil || *fp.Nutrition.CaloriesPerServing != 410 {
		t.Fatalf("kcal/serving = %v", fp.Nutrition.CaloriesPerServing)
	}
	if res.NeedsReview {
		t.Fatalf("confident OCR should not need review")
	}
}

func TestProcessLabelLowConfidence(t *testing.T) {
	p, _, _ := newTestProcessor(fakeExtractor{res: ocr.Result{Text: label, Method: "tesseract", Confidence: 0.3}})
	res, err := p.ProcessLabel(context.Background(), "/inbox/turkey.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if !res.NeedsReview {
		t.Fatalf("low confidence image should need review")
	}
	if res.Product.Barcode != "" {
		t.Fatalf("non-barcode file name must not set a barcode")
	}
}

func TestProcessLabelFailures(t *testing.T) {
	t.Run("nothing parsed", func(t *testing.T) {
		p, products, jobs := newTestProcessor(fakeExtractor{res: ocr.Result{Text: "Best before 2027\nLot 44A"}})
		res, err := p.ProcessLabel(context.Background(), "/inbox/back.txt")
		if !errors.Is(err, ErrNoNutrition) {
			t.Fatalf("got %v, want ErrNoNutrition", err)
		}
		if jobs.status(res.JobID) != string(constants.JobStatusFailed) || len(products.saved) != 0 {
			t.Fatalf("job should fail without storing a product")
		}
	})

	t.Run("extractor error", func(t *testing.T) {
		p, _, jobs := newTestProcessor(fakeExtractor{err: errors.New("tesseract missing")})
		res, err := p.ProcessLabel(context.Background(), "/inbox/a.png")
		if err == nil || jobs.status(res.JobID) != string(constants.JobStatusFailed) {
			t.Fatalf("expected failed job, err=%v", err)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		p, _, _ := newTestProcessor(fakeExtractor{})
		res, err := p.ProcessLabel(context.Background(), "/inbox/a.pdf")
		if !errors.Is(err, common.ErrInvalidInput) || res.JobID != uuid.Nil {
			t.Fatalf("got %v, job %s", err, res.JobID)
		}
	})
}

func TestBarcodeFromName(t *testing.T) {
	tests := map[string]string{
		"/x/0123456789012.jpg": "0123456789012",
		"/x/12345678.png":      "12345678",
		"/x/123.png":           "",
		"/x/label-1.txt":       "",
	}
	for in, want := range tests {
		if got := BarcodeFromName(in); got != want {
			t.Errorf("BarcodeFromName(%q) = %q, want %q", in, got, want)
		}
	}
}
