package repository

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
)

var productColumns = []string{
	"id", "barcode", "name", "brand", "category", "species", "source",
	"quality_score", "nutrition", "created_at", "updated_at",
}

// ProductFilter narrows List. Zero fields match everything.
type ProductFilter struct {
	Query    string // case-insensitive substring of name or brand
	Category string
	Source   string
	Limit    int
}

type ProductRepository interface {
	Upsert(ctx context.Context, p *entity.FoodProduct) (*entity.FoodProduct, error)
	UpsertMany(ctx context.Context, ps []entity.FoodProduct) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.FoodProduct, error)
	GetByBarcode(ctx context.Context, barcode string) (*entity.FoodProduct, error)
	List(ctx context.Context, f ProductFilter) ([]*entity.FoodProduct, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type productRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewProductRepository(db *DB, logger *slog.Logger) ProductRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert stores p. A product whose barcode is already stored replaces that
// row's contents but keeps its id and created_at; the stored row is returned.
func (r *productRepository) Upsert(ctx context.Context, p *entity.FoodProduct) (*entity.FoodProduct, error) {
	if err := r.upsert(ctx, r.db.drv, p); err != nil {
		r.logger.Error("failed to upsert product", "barcode", p.Barcode, "name", p.Name, "error", err)
		return nil, err
	}
	if p.Barcode != "" {
		return r.GetByBarcode(ctx, p.Barcode)
	}
	return r.GetByID(ctx, p.ID)
}

// UpsertMany stores ps in one transaction.
func (r *productRepository) UpsertMany(ctx context.Context, ps []entity.FoodProduct) (int, error) {
	tx, err := r.db.drv.Tx(ctx)
	if err != nil {
		return 0, err
	}
	for i := range ps {
		if err := r.upsert(ctx, tx, &ps[i]); err != nil {
			_ = tx.Rollback()
			r.logger.Error("failed to import products", "index", i, "name", ps[i].Name, "error", err)
			return 0, fmt.Errorf("product %d (%s): %w", i, ps[i].Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	r.logger.Info("products imported", "count", len(ps))
	return len(ps), nil
}

func (r *productRepository) upsert(ctx context.Context, ex dialect.ExecQuerier, p *entity.FoodProduct) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product name is required: %w", common.ErrValidation)
	}
	now := time.Now().UTC()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.Nutrition.EnsureLists()
	nut, err := json.Marshal(p.Nutrition)
	if err != nil {
		return fmt.Errorf("encode nutrition: %w", err)
	}

	conflict := "id"
	var barcode any
	if p.Barcode != "" {
		conflict, barcode = "barcode", p.Barcode
	}
	q, args := r.db.builder().Insert("products").
		Columns(productColumns...).
		Values(p.ID, barcode, p.Name, p.Brand, p.Category, p.Species, p.Nutrition.Source,
			p.Nutrition.DataQualityScore, string(nut), p.CreatedAt, p.UpdatedAt).
		OnConflict(
			entsql.ConflictColumns(conflict),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range []string{"name", "brand", "category", "species", "source", "quality_score", "nutrition", "updated_at"} {
					u.SetExcluded(c)
				}
			}),
		).
		Query()
	_, err = exec(ctx, ex, q, args)
	return err
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.FoodProduct, error) {
	return r.getOne(ctx, entsql.EQ("id", id), "id", id.String())
}

// GetByBarcode returns common.ErrNotFound when no product has the barcode.
func (r *productRepository) GetByBarcode(ctx context.Context, barcode string) (*entity.FoodProduct, error) {
	return r.getOne(ctx, entsql.EQ("barcode", barcode), "barcode", barcode)
}

func (r *productRepository) getOne(ctx context.Context, pred *entsql.Predicate, key, value string) (*entity.FoodProduct, error) {
	q, args := r.db.builder().Select(productColumns...).
		From(entsql.Table("products")).
		Where(pred).
		Limit(1).
		Query()
	var out *entity.FoodProduct
	err := query(ctx, r.db.drv, q, args, func(s entsql.ColumnScanner) error {
		p, err := scanProduct(s)
		out = p
		return err
	})
	if err != nil {
		r.logger.Error("failed to get product", key, value, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	if out == nil {
		return nil, fmt.Errorf("product %s=%s: %w", key, value, common.ErrNotFound)
	}
	return out, nil
}

func (r *productRepository) List(ctx context.Context, f ProductFilter) ([]*entity.FoodProduct, error) {
	sel := r.db.builder().Select(productColumns...).From(entsql.Table("products"))
	var preds []*entsql.Predicate
	if q := strings.TrimSpace(f.Query); q != "" {
		preds = append(preds, entsql.Or(entsql.ContainsFold("name", q), entsql.ContainsFold("brand", q)))
	}
	if f.Category != "" {
		preds = append(preds, entsql.EQ("category", f.Category))
	}
	if f.Source != "" {
		preds = append(preds, entsql.EQ("source", f.Source))
	}
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	sel = sel.OrderBy("name")
	if f.Limit > 0 {
		sel = sel.Limit(f.Limit)
	}
	q, args := sel.Query()

	var out []*entity.FoodProduct
	err := query(ctx, r.db.drv, q, args, func(s entsql.ColumnScanner) error {
		p, err := scanProduct(s)
		if err == nil {
			out = append(out, p)
		}
		return err
	})
	if err != nil {
		r.logger.Error("failed to list products", "error", err)
		return nil, err
	}
	return out, nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, args := r.db.builder().Delete("products").Where(entsql.EQ("id", id)).Query()
	n, err := exec(ctx, r.db.drv, q, args)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("product %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func scanProduct(s entsql.ColumnScanner) (*entity.FoodProduct, error) {
	var (
		p       entity.FoodProduct
		barcode stdsql.NullString
		source  string
		quality float64
		nut     []byte
	)
	if err := s.Scan(&p.ID, &barcode, &p.Name, &p.Brand, &p.Category, &p.Species, &source,
		&quality, &nut, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Barcode = barcode.String
	if err := json.Unmarshal(nut, &p.Nutrition); err != nil {
		return nil, fmt.Errorf("decode nutrition of %s: %w", p.ID, err)
	}
	p.Nutrition.Source = source
	p.Nutrition.DataQualityScore = quality
	p.Nutrition.EnsureLists()
	return &p, nil
}
