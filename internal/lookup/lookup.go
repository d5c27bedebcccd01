package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
)

// Lookup resolves a barcode to a product. Failures are *common.LookupError
// values classified as common.ErrNotFound or common.ErrNetwork; a deadline
// surfaces as context.DeadlineExceeded.
type Lookup interface {
	LookupProduct(ctx context.Context, barcode string) (*entity.FoodProduct, error)
}

// Func adapts a plain function to Lookup.
type Func func(ctx context.Context, barcode string) (*entity.FoodProduct, error)

func (f Func) LookupProduct(ctx context.Context, barcode string) (*entity.FoodProduct, error) {
	return f(ctx, barcode)
}

// Chain asks each source in order and returns the first hit. A not-found
// answer moves on to the next source; so does a network failure, but it is
// remembered and returned if no later source has the product.
type Chain []Lookup

func (c Chain) LookupProduct(ctx context.Context, barcode string) (*entity.FoodProduct, error) {
	var netErr error
	for _, l := range c {
		if l == nil {
			continue
		}
		p, err := l.LookupProduct(ctx, barcode)
		switch {
		case err == nil && p != nil:
			return p, nil
		case err == nil, errors.Is(err, common.ErrNotFound):
			continue
		case ctx.Err() != nil:
			return nil, err
		default:
			if netErr == nil {
				netErr = err
			}
		}
	}
	if netErr != nil {
		return nil, netErr
	}
	return nil, common.NotFoundLookup(barcode)
}

// ProductStore is the part of the product repository the catalog reads.
type ProductStore interface {
	GetByBarcode(ctx context.Context, barcode string) (*entity.FoodProduct, error)
}

// Catalog looks products up in the local database.
type Catalog struct {
	store  ProductStore
	logger *slog.Logger
}

func NewCatalog(store ProductStore, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{store: store, logger: logger}
}

func (c *Catalog) LookupProduct(ctx context.Context, barcode string) (*entity.FoodProduct, error) {
	p, err := c.store.GetByBarcode(ctx, barcode)
	switch {
	case errors.Is(err, common.ErrNotFound):
		c.logger.Debug("lookup.catalog.miss", "barcode", barcode)
		return nil, common.NotFoundLookup(barcode)
	case err != nil:
		return nil, common.NetworkLookup(barcode, fmt.Errorf("catalog: %w", err))
	case p == nil:
		return nil, common.NotFoundLookup(barcode)
	}
	c.logger.Debug("lookup.catalog.hit", "barcode", barcode, "product_id", p.ID)
	return p, nil
}
