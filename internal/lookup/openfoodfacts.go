package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/joseph-ayodele/petfood-scanner/constants"
	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
	"github.com/joseph-ayodele/petfood-scanner/internal/nutrition"
)

const maxBodyBytes = 4 << 20

// Client queries an Open Food Facts style product API
// (GET {base}/api/v2/product/{barcode}.json).
type Client struct {
	baseURL   string
	userAgent string
	http      *retryablehttp.Client
	logger    *slog.Logger
	now       func() time.Time
}

type ClientOption func(*Client)

// WithRetryWait bounds the backoff between retries.
func WithRetryWait(min, max time.Duration) ClientOption {
	return func(c *Client) {
		c.http.RetryWaitMin = min
		c.http.RetryWaitMax = max
	}
}

// WithClock injects the time used for records without a modification date.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func NewClient(cfg common.LookupConfig, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	rc := retryablehttp.NewClient()
	rc.Logger = logger
	rc.RetryMax = cfg.RetryMax
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "petscan/1.0"
	}
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: ua,
		http:      rc,
		logger:    logger,
		now:       time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) LookupProduct(ctx context.Context, barcode string) (*entity.FoodProduct, error) {
	v := common.NewValidator()
	v.Field("barcode", barcode, common.Required, common.Barcode)
	if v.HasErrors() {
		return nil, &common.LookupError{Kind: common.ErrNotFound, Barcode: barcode, Cause: v.Error()}
	}

	endpoint := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, url.PathEscape(barcode))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, common.NetworkLookup(barcode, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("lookup %s: %w", barcode, ctxErr)
		}
		c.logger.Warn("lookup.http.error", "barcode", barcode, "error", err)
		return nil, common.NetworkLookup(barcode, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, common.NetworkLookup(barcode, fmt.Errorf("read body: %w", err))
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.logger.Info("lookup.http.not_found", "barcode", barcode, "duration_ms", time.Since(start).Milliseconds())
		return nil, common.NotFoundLookup(barcode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, common.NetworkLookup(barcode, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if err := ValidateJSONAgainstSchema(responseSchema, body); err != nil {
		return nil, common.NetworkLookup(barcode, err)
	}
	p, err := DecodeProduct(barcode, body, c.now())
	if err != nil {
		return nil, err
	}
	c.logger.Info("lookup.http.ok",
		"barcode", barcode,
		"product", p.Name,
		"quality", p.Nutrition.DataQualityScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return p, nil
}

var reQuantity = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(kg|g|lb|oz)\b`)

// DecodeProduct maps a product API document onto a FoodProduct. A document
// with status 0 or no product object is a not-found answer.
func DecodeProduct(barcode string, body []byte, now time.Time) (*entity.FoodProduct, error) {
	doc := gjson.ParseBytes(body)
	p := doc.Get("product")
	if doc.Get("status").Int() != 1 || !p.IsObject() {
		return nil, common.NotFoundLookup(barcode)
	}

	fp := &entity.FoodProduct{
		ID:      uuid.New(),
		Barcode: barcode,
		Name:    firstString(p, "product_name", "product_name_en", "generic_name"),
	}
	if brands := strings.Split(p.Get("brands").String(), ","); len(brands) > 0 {
		fp.Brand = strings.TrimSpace(brands[0])
	}
	tags := strings.Join(stringList(p.Get("categories_tags")), " ")
	for _, t := range stringList(p.Get("categories_tags")) {
		if cat, ok := constants.Canonicalize(t); ok {
			fp.Category = string(cat)
			break
		}
	}
	switch {
	case strings.Contains(tags, "dog"):
		fp.Species = string(constants.Dog)
	case strings.Contains(tags, "cat-food") || strings.Contains(tags, "cat-treat") || strings.Contains(tags, ":cats"):
		fp.Species = string(constants.Cat)
	}

	n := p.Get("nutriments")
	info := entity.NutritionalInfo{
		Protein:            number(n, "proteins_100g"),
		Fat:                number(n, "fat_100g"),
		Fiber:              number(n, "fiber_100g"),
		Moisture:           number(n, "moisture_100g"),
		Ash:                number(n, "ash_100g"),
		Carbohydrates:      number(n, "carbohydrates_100g"),
		Sodium:             number(n, "sodium_100g"),
		Calcium:            number(n, "calcium_100g"),
		Phosphorus:         number(n, "phosphorus_100g"),
		CaloriesPerServing: number(n, "energy-kcal_serving"),
		Source:             constants.SourceOpenFoodFacts,
		ExternalID:         firstString(doc, "code"),
		Allergens:          stripLang(stringList(p.Get("allergens_tags"))),
		Additives:          stripLang(stringList(p.Get("additives_tags"))),
		Vitamins:           stripLang(stringList(p.Get("vitamins_tags"))),
		Minerals:           stripLang(stringList(p.Get("minerals_tags"))),
	}
	if kcal := number(n, "energy-kcal_100g"); kcal != nil {
		perKg := *kcal * 10
		info.CaloriesPerKg = &perKg
	}

	for _, ing := range p.Get("ingredients").Array() {
		if t := strings.TrimSpace(ing.Get("text").String()); t != "" {
			info.Ingredients = append(info.Ingredients, t)
		}
	}
	if len(info.Ingredients) == 0 {
		info.Ingredients = nutrition.SplitIngredientList(firstString(p, "ingredients_text_en", "ingredients_text"))
	}

	p.Get("nutrient_levels").ForEach(func(k, v gjson.Result) bool {
		info.NutrientLevels.Set(k.String(), v.String())
		return true
	})
	if s := p.Get("packaging").String(); s != "" {
		info.Packaging.Set(string(entity.PackagingMaterial), s)
	}
	if g, ok := grams(p.Get("quantity").String()); ok {
		info.Packaging.Set(string(entity.PackagingNetWeightG), strconv.FormatFloat(g, 'f', -1, 64))
	}
	if s := p.Get("serving_size").String(); s != "" {
		info.Packaging.Set(string(entity.PackagingServingSize), s)
	}
	if s := p.Get("manufacturing_places").String(); s != "" {
		info.Manufacturing.Set(string(entity.ManufacturingCountry), s)
	}
	if s := p.Get("emb_codes").String(); s != "" {
		info.Manufacturing.Set(string(entity.ManufacturingFacility), s)
	}

	info.LastUpdated = now
	if ts := p.Get("last_modified_t").Int(); ts > 0 {
		info.LastUpdated = time.Unix(ts, 0).UTC()
	}
	info.EnsureLists()
	info.DataQualityScore = nutrition.Score(nutrition.NutrientsOf(info), info.Ingredients).Overall
	fp.Nutrition = info
	fp.CreatedAt, fp.UpdatedAt = now, now
	if fp.Name == "" {
		return nil, common.NetworkLookup(barcode, errors.New("product document has no name"))
	}
	return fp, nil
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := strings.TrimSpace(r.Get(p).String()); s != "" {
			return s
		}
	}
	return ""
}

func number(r gjson.Result, path string) *float64 {
	v := r.Get(path)
	if !v.Exists() || (v.Type != gjson.Number && v.Type != gjson.String) {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
	if err != nil {
		return nil
	}
	return &f
}

func stringList(r gjson.Result) []string {
	var out []string
	for _, v := range r.Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// stripLang drops the "en:" style prefix of taxonomy tags.
func stripLang(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if i := strings.IndexByte(t, ':'); i >= 0 {
			t = t[i+1:]
		}
		out = append(out, t)
	}
	return out
}

func grams(quantity string) (float64, bool) {
	m := reQuantity.FindStringSubmatch(quantity)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "kg":
		v *= 1000
	case "lb":
		v *= 453.59237
	case "oz":
		v *= 28.349523125
	}
	return v, true
}
