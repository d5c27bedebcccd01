package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
	"github.com/joseph-ayodele/petfood-scanner/internal/nutrition"
	"github.com/joseph-ayodele/petfood-scanner/internal/ocr"
	"github.com/joseph-ayodele/petfood-scanner/internal/repository"
)

// ErrNoNutrition means the label text held neither ingredients nor any
// nutrient value.
var ErrNoNutrition = errors.New("no nutrition data found on label")

// TextExtractor reads the text of a label file.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (ocr.Result, error)
}

// LabelResult is what one label file produced.
type LabelResult struct {
	JobID       uuid.UUID
	OCR         ocr.Result
	Parsed      nutrition.ParsedNutrition
	Quality     nutrition.QualityReport
	Product     *entity.FoodProduct
	NeedsReview bool
}

// Processor coordinates text extraction then nutrition parsing for label
// files, tracking each file as a label_job.
type Processor struct {
	Logger    *slog.Logger
	Extractor TextExtractor
	Parser    *nutrition.Parser
	Products  repository.ProductRepository
	Jobs      repository.LabelJobRepository
	now       func() time.Time
}

func NewProcessor(logger *slog.Logger, ex TextExtractor, products repository.ProductRepository, jobs repository.LabelJobRepository, parser *nutrition.Parser) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if parser == nil {
		parser = nutrition.NewParser()
	}
	return &Processor{Logger: logger, Extractor: ex, Parser: parser, Products: products, Jobs: jobs, now: time.Now}
}

// ProcessLabel runs OCR for path, parses the text and upserts the product.
// The returned JobID is set whenever a job row was created, even on error.
func (p *Processor) ProcessLabel(ctx context.Context, path string) (LabelResult, error) {
	// 1) OCR stage → creates job + reads text
	res, err := p.recognize(ctx, path)
	if err != nil {
		p.Logger.Error("processor.ocr.failed", "path", path, "job_id", res.JobID, "err", err)
		return res, err
	}
	p.Logger.Info("processor.ocr.ok",
		"path", path,
		"job_id", res.JobID,
		"method", res.OCR.Method,
		"confidence", res.OCR.Confidence,
	)

	// 2) Parse stage → parses nutrition and stores the product
	if err := p.parse(ctx, path, &res); err != nil {
		p.Logger.Error("processor.parse.failed", "job_id", res.JobID, "err", err)
		return res, err
	}
	p.Logger.Info("processor.parse.ok", "job_id", res.JobID, "product_id", res.Product.ID, "quality", res.Quality.Overall)
	return res, nil
}
