package repository

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/petfood-scanner/constants"
	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
)

var labelJobColumns = []string{
	"id", "source_path", "format", "status", "method", "confidence",
	"product_id", "error_message", "started_at", "finished_at",
}

type LabelJobRepository interface {
	Start(ctx context.Context, sourcePath, format string) (*entity.LabelJob, error)
	MarkRunning(ctx context.Context, jobID uuid.UUID) error
	FinishSuccess(ctx context.Context, jobID uuid.UUID, productID *uuid.UUID, method string, confidence float64) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	GetByID(ctx context.Context, jobID uuid.UUID) (*entity.LabelJob, error)
}

type labelJobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewLabelJobRepository(db *DB, log *slog.Logger) LabelJobRepository {
	return &labelJobRepo{db: db, log: log}
}

func (r *labelJobRepo) Start(ctx context.Context, sourcePath, format string) (*entity.LabelJob, error) {
	job := &entity.LabelJob{
		ID:         uuid.New(),
		SourcePath: sourcePath,
		Format:     format,
		Status:     string(constants.JobStatusQueued),
		StartedAt:  time.Now().UTC(),
	}
	q, args := r.db.builder().Insert("label_jobs").
		Columns("id", "source_path", "format", "status", "started_at").
		Values(job.ID, job.SourcePath, job.Format, job.Status, job.StartedAt).
		Query()
	if _, err := exec(ctx, r.db.drv, q, args); err != nil {
		r.log.Error("label_job start failed", "source_path", sourcePath, "err", err)
		return nil, err
	}
	r.log.Info("label_job started", "job_id", job.ID, "source_path", sourcePath, "format", format)
	return job, nil
}

func (r *labelJobRepo) MarkRunning(ctx context.Context, jobID uuid.UUID) error {
	return r.update(ctx, jobID, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.JobStatusRunning))
	})
}

func (r *labelJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, productID *uuid.UUID, method string, confidence float64) error {
	err := r.update(ctx, jobID, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.JobStatusParsed)).
			Set("method", method).
			Set("confidence", confidence).
			Set("product_id", nullUUID(productID)).
			Set("finished_at", time.Now().UTC())
	})
	if err != nil {
		r.log.Error("label_job finish(PARSED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("label_job finished (PARSED)", "job_id", jobID, "method", method)
	return nil
}

func (r *labelJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	err := r.update(ctx, jobID, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.JobStatusFailed)).
			Set("error_message", message).
			Set("finished_at", time.Now().UTC())
	})
	if err != nil {
		r.log.Error("label_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("label_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

func (r *labelJobRepo) update(ctx context.Context, jobID uuid.UUID, set func(*entsql.UpdateBuilder)) error {
	u := r.db.builder().Update("label_jobs")
	set(u)
	q, args := u.Where(entsql.EQ("id", jobID)).Query()
	n, err := exec(ctx, r.db.drv, q, args)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("label job %s: %w", jobID, common.ErrNotFound)
	}
	return nil
}

func (r *labelJobRepo) GetByID(ctx context.Context, jobID uuid.UUID) (*entity.LabelJob, error) {
	q, args := r.db.builder().Select(labelJobColumns...).
		From(entsql.Table("label_jobs")).
		Where(entsql.EQ("id", jobID)).
		Query()
	var out *entity.LabelJob
	err := query(ctx, r.db.drv, q, args, func(s entsql.ColumnScanner) error {
		var (
			job      entity.LabelJob
			product  uuid.NullUUID
			msg      stdsql.NullString
			finished stdsql.NullTime
		)
		if err := s.Scan(&job.ID, &job.SourcePath, &job.Format, &job.Status, &job.Method, &job.Confidence,
			&product, &msg, &job.StartedAt, &finished); err != nil {
			return err
		}
		if product.Valid {
			job.ProductID = &product.UUID
		}
		if msg.Valid {
			job.ErrorMessage = &msg.String
		}
		if finished.Valid {
			job.FinishedAt = &finished.Time
		}
		out = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("label job %s: %w", jobID, common.ErrNotFound)
	}
	return out, nil
}
