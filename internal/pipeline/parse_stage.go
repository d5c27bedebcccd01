package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
)

// parse turns the recognized text into a product and finishes the job.
func (p *Processor) parse(ctx context.Context, path string, res *LabelResult) error {
	res.Parsed = p.Parser.Parse(res.OCR.Text)
	res.Quality = res.Parsed.Quality()

	if len(res.Parsed.Ingredients) == 0 && len(res.Quality.Present) == 0 {
		_ = p.Jobs.FinishFailure(ctx, res.JobID, ErrNoNutrition.Error())
		return ErrNoNutrition
	}

	fp := res.Parsed.ToFoodProduct(uuid.New(), BarcodeFromName(path), p.now().UTC())
	if fp.Name == "" {
		fp.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	stored, err := p.Products.Upsert(ctx, &fp)
	if err != nil {
		_ = p.Jobs.FinishFailure(ctx, res.JobID, err.Error())
		return err
	}
	res.Product = stored

	return p.Jobs.FinishSuccess(ctx, res.JobID, &stored.ID, res.OCR.Method, float64(res.OCR.Confidence))
}

// BarcodeFromName returns the file's base name when it is a valid barcode,
// so labels saved as "0123456789012.jpg" are linked to their product.
func BarcodeFromName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := common.NewValidator().Field("barcode", name, common.Barcode).Error(); err != nil {
		return ""
	}
	return name
}
