// Package app wires configuration, storage and the scanning components into
// the set of services the petscan binaries share.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/export"
	"github.com/joseph-ayodele/petfood-scanner/internal/logger"
	"github.com/joseph-ayodele/petfood-scanner/internal/lookup"
	"github.com/joseph-ayodele/petfood-scanner/internal/ocr"
	"github.com/joseph-ayodele/petfood-scanner/internal/pipeline"
	"github.com/joseph-ayodele/petfood-scanner/internal/repository"
)

type App struct {
	Config *common.Config
	Logger *slog.Logger

	DB       *repository.DB
	Products repository.ProductRepository
	Pets     repository.PetRepository
	Scans    repository.ScanRepository
	Jobs     repository.LabelJobRepository

	Lookup     lookup.Lookup
	Extractor  *ocr.Extractor
	Recognizer ocr.Recognizer
	Processor  *pipeline.Processor
	Export     *export.Service

	closers []io.Closer
}

// New opens the database, runs migrations and builds every component from
// cfg. The caller owns Close.
func New(ctx context.Context, cfg *common.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, logCloser, err := logger.Setup(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	a := &App{Config: cfg, Logger: log, closers: []io.Closer{logCloser}}

	db, err := repository.Open(ctx, cfg.Database, logger.WithComponent(log, "repository"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.DB = db
	if err := db.Migrate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	repoLog := logger.WithComponent(log, "repository")
	a.Products = repository.NewProductRepository(db, repoLog)
	a.Pets = repository.NewPetRepository(db, repoLog)
	a.Scans = repository.NewScanRepository(db, repoLog)
	a.Jobs = repository.NewLabelJobRepository(db, repoLog)

	lookupLog := logger.WithComponent(log, "lookup")
	chain := lookup.Chain{lookup.NewCatalog(a.Products, lookupLog)}
	if !cfg.Lookup.Disabled {
		chain = append(chain, lookup.NewClient(cfg.Lookup, lookupLog))
	}
	a.Lookup = chain

	ex, rec, err := Recognizers(ctx, cfg.OCR, logger.WithComponent(log, "ocr"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Extractor, a.Recognizer = ex, rec
	if c, ok := rec.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	a.Processor = pipeline.NewProcessor(logger.WithComponent(log, "pipeline"), a.Extractor, a.Products, a.Jobs, nil)
	a.Export = export.NewService(a.Products, a.Scans, logger.WithComponent(log, "export"))
	return a, nil
}

// Close releases the database and any recognizer clients. Safe to call on a
// partially built App.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close(a.Logger)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Logger.Warn("close failed", "error", err)
		}
	}
}

// Recognizers builds the tesseract extractor used for label files and the
// recognizer used for live captures, which is Cloud Vision when configured.
// A Vision recognizer must be closed by the caller.
func Recognizers(ctx context.Context, cfg common.OCRConfig, log *slog.Logger) (*ocr.Extractor, ocr.Recognizer, error) {
	ex := ocr.NewExtractor(ocr.Config{
		Tesseract:           cfg.Tesseract,
		TesseractLang:       cfg.TesseractLang,
		TessdataDir:         cfg.TessdataDir,
		EnableTSVConfidence: cfg.EnableTSVConfidence,
		PSM:                 6,
		HeicConverter:       cfg.HeicConverter,
		CacheDir:            cfg.CacheDir,
	}, log)
	if cfg.Engine != "vision" {
		return ex, ex, nil
	}
	v, err := ocr.NewVisionRecognizer(ctx, cfg.CredentialsFile, log)
	if err != nil {
		return nil, nil, fmt.Errorf("vision recognizer: %w", err)
	}
	return ex, v, nil
}
