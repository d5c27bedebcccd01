package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/petfood-scanner/constants"
)

// Recognizer turns a captured label image into text. Implementations must
// reject undecodable or zero-sized images with common.ErrCaptureInvalid.
type Recognizer interface {
	Recognize(ctx context.Context, img []byte) (Result, error)
}

type Config struct {
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
	TessdataDir   string

	EnableTSVConfidence bool

	PSM int // 6 suits a uniform block of label text
	OEM int // 1 = LSTM; leave 0 to use default

	HeicConverter string // heif-convert | magick | sips; empty rejects HEIC
	CacheDir      string // converted HEIC images, keyed by content hash
}

type Result struct {
	Text       string
	SourceType string // constants.IMAGE | constants.TXT
	Method     string // "tesseract" | "vision" | "text"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Extractor runs tesseract over label images.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner, used to stub tesseract in tests.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	if r != nil {
		e.runner = r
	}
	return e
}

// Extract picks a strategy based on file extension. Plain text files are
// read as already-recognized label text.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting label extraction", "path", path, "ext", ext)
	switch constants.MapExtToFormat(ext) {
	case constants.TXT:
		b, err := os.ReadFile(path)
		if err != nil {
			return Result{SourceType: constants.TXT}, fmt.Errorf("read label text: %w", err)
		}
		txt := Normalize(string(b))
		return Result{
			Text:       txt,
			SourceType: constants.TXT,
			Method:     "text",
			Duration:   time.Since(start),
			Confidence: heuristicConfidence(txt),
		}, nil
	case constants.IMAGE:
		if constants.IsHEIC(ext) {
			png, warn, cleanup, err := e.convertHEIC(ctx, path)
			if cleanup != nil {
				defer cleanup()
			}
			if err != nil {
				return Result{SourceType: constants.IMAGE, Method: "tesseract", Warnings: warn}, err
			}
			path = png
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return Result{SourceType: constants.IMAGE}, fmt.Errorf("read label image: %w", err)
		}
		if _, err := ValidateCapture(b); err != nil {
			return Result{SourceType: constants.IMAGE}, err
		}
		res, err := e.extractImage(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	default:
		e.logger.Error("unsupported label extension", "extension", ext)
		return Result{}, fmt.Errorf("unsupported extension: %q", ext)
	}
}

// Recognize validates the capture, spools it to a temp file and runs
// tesseract on it.
func (e *Extractor) Recognize(ctx context.Context, img []byte) (Result, error) {
	start := time.Now()
	info, err := ValidateCapture(img)
	if err != nil {
		return Result{SourceType: constants.IMAGE}, err
	}
	f, err := os.CreateTemp("", "petscan-capture-*."+info.Format)
	if err != nil {
		return Result{SourceType: constants.IMAGE}, fmt.Errorf("spool capture: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if _, err := f.Write(img); err != nil {
		_ = f.Close()
		return Result{SourceType: constants.IMAGE}, fmt.Errorf("spool capture: %w", err)
	}
	if err := f.Close(); err != nil {
		return Result{SourceType: constants.IMAGE}, fmt.Errorf("spool capture: %w", err)
	}
	res, err := e.extractImage(ctx, f.Name())
	res.Duration = time.Since(start)
	return res, err
}
