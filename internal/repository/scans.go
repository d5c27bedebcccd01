package repository

import (
	"context"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
)

var scanColumns = []string{
	"id", "session_id", "product_id", "pet_id", "barcode", "method", "final_state",
	"failure_reason", "confidence", "quality_score", "severity", "assessment",
	"processing_ms", "created_at",
}

type ScanRepository interface {
	Record(ctx context.Context, rec *entity.ScanRecord) error
	ListRecent(ctx context.Context, limit int) ([]*entity.ScanRecord, error)
}

type scanRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewScanRepository(db *DB, logger *slog.Logger) ScanRepository {
	return &scanRepository{db: db, logger: logger}
}

func (r *scanRepository) Record(ctx context.Context, rec *entity.ScanRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	var assessment any
	if len(rec.AssessmentJSON) > 0 {
		assessment = string(rec.AssessmentJSON)
	}
	q, args := r.db.builder().Insert("scans").
		Columns(scanColumns...).
		Values(rec.ID, rec.SessionID, nullUUID(rec.ProductID), nullUUID(rec.PetID), rec.Barcode, rec.Method,
			rec.FinalState, rec.FailureReason, rec.Confidence, rec.QualityScore, rec.Severity, assessment,
			rec.ProcessingTime.Milliseconds(), rec.CreatedAt).
		Query()
	if _, err := exec(ctx, r.db.drv, q, args); err != nil {
		r.logger.Error("failed to record scan", "session_id", rec.SessionID, "error", err)
		return err
	}
	r.logger.Info("scan recorded", "scan_id", rec.ID, "final_state", rec.FinalState, "method", rec.Method)
	return nil
}

func (r *scanRepository) ListRecent(ctx context.Context, limit int) ([]*entity.ScanRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	q, args := r.db.builder().Select(scanColumns...).
		From(entsql.Table("scans")).
		OrderBy(entsql.Desc("created_at")).
		Limit(limit).
		Query()
	var out []*entity.ScanRecord
	err := query(ctx, r.db.drv, q, args, func(s entsql.ColumnScanner) error {
		var (
			rec        entity.ScanRecord
			product    uuid.NullUUID
			pet        uuid.NullUUID
			assessment []byte
			ms         int64
		)
		if err := s.Scan(&rec.ID, &rec.SessionID, &product, &pet, &rec.Barcode, &rec.Method, &rec.FinalState,
			&rec.FailureReason, &rec.Confidence, &rec.QualityScore, &rec.Severity, &assessment, &ms, &rec.CreatedAt); err != nil {
			return err
		}
		if product.Valid {
			rec.ProductID = &product.UUID
		}
		if pet.Valid {
			rec.PetID = &pet.UUID
		}
		rec.AssessmentJSON = assessment
		rec.ProcessingTime = time.Duration(ms) * time.Millisecond
		out = append(out, &rec)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list scans", "error", err)
		return nil, err
	}
	return out, nil
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}
