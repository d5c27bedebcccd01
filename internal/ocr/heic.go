package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type ctxKey string

const ctxKeyContentHash ctxKey = "ocr.content_hash_hex"

// WithContentHash stores the hex sha256 of the label file so converted
// images can be cached under it.
func WithContentHash(ctx context.Context, hex string) context.Context {
	return context.WithValue(ctx, ctxKeyContentHash, hex)
}

func contentHashFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyContentHash).(string)
	return v
}

// convertHEIC turns a phone HEIC/HEIF photo into a PNG tesseract can read.
// With a cache dir and a content hash the PNG is kept at {cacheDir}/{hash}.png
// and reused; otherwise it lives in a temp dir removed by cleanup.
func (e *Extractor) convertHEIC(ctx context.Context, in string) (out string, warn []string, cleanup func(), err error) {
	hash := contentHashFromCtx(ctx)
	cacheDir := e.cfg.CacheDir
	var cached string
	if cacheDir != "" && hash != "" {
		cached = filepath.Join(cacheDir, hash+".png")
		if st, err := os.Stat(cached); err == nil && !st.IsDir() {
			e.logger.Debug("using cached heic->png", "cache", cached)
			return cached, nil, nil, nil
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", nil, nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "petscan-heic-*")
	if err != nil {
		return "", nil, nil, err
	}
	cleanup = func() { _ = os.RemoveAll(tmpDir) }
	out = filepath.Join(tmpDir, "label.png")

	var args []string
	switch e.cfg.HeicConverter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		cleanup()
		return "", nil, nil, fmt.Errorf("HEIC labels need HEIC_CONVERTER set to heif-convert, magick or sips")
	}
	if _, errb, err := e.runner.Run(ctx, e.cfg.HeicConverter, args...); err != nil {
		cleanup()
		return "", []string{string(errb)}, nil, fmt.Errorf("%s failed: %w", e.cfg.HeicConverter, err)
	}
	if _, err := os.Stat(out); err != nil {
		cleanup()
		return "", nil, nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}

	if cached == "" {
		return out, nil, cleanup, nil
	}
	defer cleanup()
	if err := persist(out, cached); err != nil {
		// another worker may have written it first
		if st, statErr := os.Stat(cached); statErr == nil && !st.IsDir() {
			return cached, nil, nil, nil
		}
		return "", nil, nil, err
	}
	e.logger.Debug("cached heic->png", "cache", cached)
	return cached, nil, nil, nil
}

// persist moves src to dst, copying when a rename crosses devices.
func persist(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
