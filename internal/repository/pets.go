package repository

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/petfood-scanner/constants"
	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
)

var petColumns = []string{"id", "name", "species", "breed", "sensitivities", "created_at", "updated_at"}

type PetRepository interface {
	CreatePet(ctx context.Context, pet *entity.PetProfile) (*entity.PetProfile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.PetProfile, error)
	ListPets(ctx context.Context) ([]*entity.PetProfile, error)
	UpdateSensitivities(ctx context.Context, id uuid.UUID, s []entity.Sensitivity) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type petRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewPetRepository(db *DB, logger *slog.Logger) PetRepository {
	return &petRepository{
		db:     db,
		logger: logger,
	}
}

func (r *petRepository) CreatePet(ctx context.Context, pet *entity.PetProfile) (*entity.PetProfile, error) {
	if strings.TrimSpace(pet.Name) == "" {
		return nil, fmt.Errorf("pet name is required: %w", common.ErrValidation)
	}
	species, ok := constants.CanonicalSpecies(pet.Species)
	if !ok {
		return nil, fmt.Errorf("unknown species %q: %w", pet.Species, common.ErrValidation)
	}
	p := *pet
	p.Species = string(species)
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Sensitivities == nil {
		p.Sensitivities = []entity.Sensitivity{}
	}
	sens, err := json.Marshal(p.Sensitivities)
	if err != nil {
		return nil, err
	}

	q, args := r.db.builder().Insert("pets").
		Columns(petColumns...).
		Values(p.ID, p.Name, p.Species, p.Breed, string(sens), p.CreatedAt, p.UpdatedAt).
		Query()
	if _, err := exec(ctx, r.db.drv, q, args); err != nil {
		r.logger.Error("failed to create pet", "name", p.Name, "species", p.Species, "error", err)
		return nil, err
	}
	return &p, nil
}

func (r *petRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.PetProfile, error) {
	q, args := r.db.builder().Select(petColumns...).
		From(entsql.Table("pets")).
		Where(entsql.EQ("id", id)).
		Query()
	var out *entity.PetProfile
	err := query(ctx, r.db.drv, q, args, func(s entsql.ColumnScanner) error {
		p, err := scanPet(s)
		out = p
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("pet %s: %w", id, common.ErrNotFound)
	}
	return out, nil
}

func (r *petRepository) ListPets(ctx context.Context) ([]*entity.PetProfile, error) {
	q, args := r.db.builder().Select(petColumns...).
		From(entsql.Table("pets")).
		OrderBy("created_at").
		Query()
	var out []*entity.PetProfile
	err := query(ctx, r.db.drv, q, args, func(s entsql.ColumnScanner) error {
		p, err := scanPet(s)
		if err == nil {
			out = append(out, p)
		}
		return err
	})
	if err != nil {
		r.logger.Error("failed to list pets", "error", err)
		return nil, err
	}
	return out, nil
}

func (r *petRepository) UpdateSensitivities(ctx context.Context, id uuid.UUID, s []entity.Sensitivity) error {
	if s == nil {
		s = []entity.Sensitivity{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	q, args := r.db.builder().Update("pets").
		Set("sensitivities", string(b)).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("id", id)).
		Query()
	n, err := exec(ctx, r.db.drv, q, args)
	if err != nil {
		r.logger.Error("failed to update sensitivities", "pet_id", id, "error", err)
		return err
	}
	if n == 0 {
		return fmt.Errorf("pet %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *petRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, args := r.db.builder().Delete("pets").Where(entsql.EQ("id", id)).Query()
	n, err := exec(ctx, r.db.drv, q, args)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("pet %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func scanPet(s entsql.ColumnScanner) (*entity.PetProfile, error) {
	var (
		p     entity.PetProfile
		breed stdsql.NullString
		sens  []byte
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Species, &breed, &sens, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if breed.Valid {
		p.Breed = &breed.String
	}
	if err := json.Unmarshal(sens, &p.Sensitivities); err != nil {
		return nil, fmt.Errorf("decode sensitivities of %s: %w", p.ID, err)
	}
	return &p, nil
}
