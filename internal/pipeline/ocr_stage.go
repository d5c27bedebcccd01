package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/joseph-ayodele/petfood-scanner/constants"
	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/ocr"
)

// recognize starts a label_job and extracts the file's text.
func (p *Processor) recognize(ctx context.Context, path string) (LabelResult, error) {
	var res LabelResult
	format := constants.MapExtToFormat(filepath.Ext(path))
	if format == "" {
		return res, fmt.Errorf("unsupported format %q: %w", filepath.Ext(path), common.ErrInvalidInput)
	}

	job, err := p.Jobs.Start(ctx, path, format)
	if err != nil {
		return res, err
	}
	res.JobID = job.ID
	if err := p.Jobs.MarkRunning(ctx, job.ID); err != nil {
		return res, err
	}

	out, err := p.Extractor.Extract(ctx, path)
	if err != nil {
		_ = p.Jobs.FinishFailure(ctx, job.ID, err.Error())
		return res, err
	}
	res.OCR = out

	// for images, flag low-confidence OCR for review
	if format == constants.IMAGE && out.Confidence > 0 && out.Confidence < ocr.ImageConfidenceThreshold {
		p.Logger.Warn("image ocr confidence low; needs review", "path", path, "job_id", job.ID, "conf", out.Confidence)
		res.NeedsReview = true
	}
	return res, nil
}
