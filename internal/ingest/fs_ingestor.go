package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/petfood-scanner/constants"
	"github.com/joseph-ayodele/petfood-scanner/internal/async"
	"github.com/joseph-ayodele/petfood-scanner/internal/common"
)

// FSIngestor hashes label files from the local filesystem and queues each
// distinct file once.
type FSIngestor struct {
	Queue  async.Queue
	Logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // sha256 hex -> first path
	now  func() time.Time
}

func NewFSIngestor(q async.Queue, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		Queue:  q,
		Logger: logger,
		seen:   map[string]string{},
		now:    time.Now,
	}
}

// IngestPath hashes path and enqueues it unless identical content was seen
// before. force queues it regardless.
func (i *FSIngestor) IngestPath(ctx context.Context, path string, force bool) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		i.Logger.Warn("unsupported or missing extension", "path", abs, "ext", ext)
		return out, fmt.Errorf("%w: unsupported or missing extension %q", common.ErrInvalidInput, ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		return out, fmt.Errorf("open: %w", err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			i.Logger.Warn("close file error", "path", abs, "error", err)
		}
	}(f)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return out, fmt.Errorf("hash: %w", err)
	}
	sum := hex.EncodeToString(h.Sum(nil))

	out = IngestionResult{
		SourcePath: abs,
		HashHex:    sum,
		FileExt:    ext,
		SeenAt:     i.now().UTC(),
	}

	i.mu.Lock()
	first, dup := i.seen[sum]
	if !dup {
		i.seen[sum] = abs
	}
	i.mu.Unlock()

	if dup && !force {
		i.Logger.Info("duplicate label skipped", "path", abs, "first_seen", first)
		out.Deduplicated = true
		return out, nil
	}

	job := async.Job{Path: abs, Force: force, SubmittedAt: out.SeenAt, TraceID: common.RequestIDFromContext(ctx), ContentHash: out.HashHex}
	if err := i.Queue.Enqueue(ctx, job); err != nil {
		if !dup {
			i.forget(sum)
		}
		return out, fmt.Errorf("enqueue: %w", err)
	}
	out.Queued = true
	out.Deduplicated = dup
	return out, nil
}

func (i *FSIngestor) forget(sum string) {
	i.mu.Lock()
	delete(i.seen, sum)
	i.mu.Unlock()
}

// IngestDirectory walks root, skips hidden entries if requested, and calls
// IngestPath for each label file.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path, false)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.Logger.Info("directory ingested", "root", root,
		"scanned", stats.Scanned, "matched", stats.Matched, "succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated, "failed", stats.Failed)
	return results, stats, nil
}
