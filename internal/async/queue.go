package async

import (
	"context"
	"time"
)

// Job is one label file waiting for the pipeline.
type Job struct {
	Path        string
	Force       bool // enqueue even if deduplicated
	SubmittedAt time.Time
	TraceID     string
	ContentHash string // hex sha256, lets OCR reuse converted images
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
