package lookup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
)

const productDoc = `{
  "code": "0123456789012",
  "status": 1,
  "status_verbose": "product found",
  "product": {
    "product_name": "Adult Chicken & Rice",
    "brands": "Acme Pet Foods, Acme",
    "categories_tags": ["en:pet-food", "en:dogs", "en:dry-dog-food"],
    "ingredients_text": "Chicken, brown rice, minerals (zinc sulfate, iron proteinate).",
    "allergens_tags": ["en:chicken"],
    "additives_tags": [],
    "nutriments": {
      "proteins_100g": 25,
      "fat_100g": "15",
      "fiber_100g": 4,
      "energy-kcal_100g": 361.3
    },
    "nutrient_levels": {"fat": "moderate", "salt": "low", "fibre": "some"},
    "packaging": "Plastic bag",
    "quantity": "2 kg",
    "manufacturing_places": "USA",
    "last_modified_t": 1700000000
  }
}`

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(common.LookupConfig{BaseURL: srv.URL + "/", RetryMax: 1, Timeout: 2 * time.Second}, nil,
		WithRetryWait(time.Millisecond, 2*time.Millisecond), WithClock(func() time.Time { return fixedNow }))
}

func TestClientFound(t *testing.T) {
	var gotPath, gotUA string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotUA = r.URL.Path, r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(productDoc))
	})

	p, err := c.LookupProduct(context.Background(), "0123456789012")
	if err != nil {
		t.Fatalf("LookupProduct: %v", err)
	}
	if gotPath != "/api/v2/product/0123456789012.json" || gotUA != "petscan/1.0" {
		t.Fatalf("unexpected request path=%q ua=%q", gotPath, gotUA)
	}
	if p.Name != "Adult Chicken & Rice" || p.Brand != "Acme Pet Foods" {
		t.Fatalf("unexpected name/brand %q/%q", p.Name, p.Brand)
	}
	if p.Category != "DryFood" || p.Species != "dog" {
		t.Fatalf("unexpected category/species %q/%q", p.Category, p.Species)
	}
	wantIngredients := []string{"Chicken", "brown rice", "minerals (zinc sulfate, iron proteinate)"}
	if diff := cmp.Diff(wantIngredients, p.Nutrition.Ingredients); diff != "" {
		t.Fatalf("ingredients mismatch (-want +got):\n%s", diff)
	}
	n := p.Nutrition
	if *n.Protein != 25 || *n.Fat != 15 || *n.Fiber != 4 || *n.CaloriesPerKg != 3613 {
		t.Fatalf("unexpected nutrients %+v", n)
	}
	if n.CaloriesPerServing != nil || n.Moisture != nil {
		t.Fatalf("absent values must stay nil")
	}
	if diff := cmp.Diff([]string{"chicken"}, n.Allergens); diff != "" {
		t.Fatalf("allergens mismatch (-want +got):\n%s", diff)
	}
	if n.Additives == nil || n.Vitamins == nil {
		t.Fatalf("lists must be empty, not nil")
	}
	if lv, ok := n.NutrientLevels.Get(entity.NutrientFat); !ok || lv.Level != entity.LevelModerate {
		t.Fatalf("expected typed fat level, got %+v", lv)
	}
	if n.NutrientLevels.Extra["fibre"] != "some" {
		t.Fatalf("unknown level should be kept in Extra, got %v", n.NutrientLevels.Extra)
	}
	if w, ok := n.Packaging.Get(entity.PackagingNetWeightG); !ok || w.Number != 2000 {
		t.Fatalf("expected net weight 2000g, got %+v", w)
	}
	if n.Source != "open_food_facts" || n.ExternalID != "0123456789012" {
		t.Fatalf("unexpected metadata %q/%q", n.Source, n.ExternalID)
	}
	if !n.LastUpdated.Equal(time.Unix(1700000000, 0)) || !p.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected timestamps %v %v", n.LastUpdated, p.CreatedAt)
	}
	if n.DataQualityScore <= 0 || n.DataQualityScore > 1 {
		t.Fatalf("quality out of range: %v", n.DataQualityScore)
	}
}

func TestClientNotFound(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"http 404", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":0,"status_verbose":"product not found"}`))
		}},
		{"status 0", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"code":"12345678","status":0}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestClient(t, tt.h).LookupProduct(context.Background(), "12345678")
			if !errors.Is(err, common.ErrNotFound) || !errors.Is(err, common.ErrLookupFailure) {
				t.Fatalf("expected not-found lookup failure, got %v", err)
			}
		})
	}
}

func TestClientNetworkErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.LookupProduct(context.Background(), "12345678")
	if !errors.Is(err, common.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", calls.Load())
	}

	c = newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"yes"}`))
	})
	if _, err := c.LookupProduct(context.Background(), "12345678"); !errors.Is(err, common.ErrNetwork) {
		t.Fatalf("schema mismatch should be an upstream failure, got %v", err)
	}
}

func TestClientDeadline(t *testing.T) {
	block := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	defer close(block)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.LookupProduct(ctx, "12345678")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestClientRejectsBadBarcode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Errorf("no request expected")
	})
	_, err := c.LookupProduct(context.Background(), "12a")
	if !errors.Is(err, common.ErrNotFound) || !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected not-found with validation cause, got %v", err)
	}
}

type stubLookup struct {
	p     *entity.FoodProduct
	err   error
	calls int
}

func (s *stubLookup) LookupProduct(context.Context, string) (*entity.FoodProduct, error) {
	s.calls++
	return s.p, s.err
}

func TestChain(t *testing.T) {
	found := &entity.FoodProduct{Name: "Found"}
	netErr := common.NetworkLookup("1", errors.New("down"))

	t.Run("first hit wins", func(t *testing.T) {
		a, b := &stubLookup{err: common.NotFoundLookup("1")}, &stubLookup{p: found}
		c := &stubLookup{p: &entity.FoodProduct{Name: "Later"}}
		p, err := Chain{a, b, c}.LookupProduct(context.Background(), "1")
		if err != nil || p != found || c.calls != 0 {
			t.Fatalf("unexpected result %v %v calls=%d", p, err, c.calls)
		}
	})
	t.Run("network error remembered", func(t *testing.T) {
		_, err := Chain{&stubLookup{err: netErr}, &stubLookup{err: common.NotFoundLookup("1")}}.LookupProduct(context.Background(), "1")
		if !errors.Is(err, common.ErrNetwork) {
			t.Fatalf("expected network error, got %v", err)
		}
	})
	t.Run("network error recovered", func(t *testing.T) {
		p, err := Chain{&stubLookup{err: netErr}, &stubLookup{p: found}}.LookupProduct(context.Background(), "1")
		if err != nil || p != found {
			t.Fatalf("expected later source to answer, got %v %v", p, err)
		}
	})
	t.Run("empty chain", func(t *testing.T) {
		_, err := Chain{}.LookupProduct(context.Background(), "1")
		if !errors.Is(err, common.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

type stubStore struct {
	p   *entity.FoodProduct
	err error
}

func (s stubStore) GetByBarcode(context.Context, string) (*entity.FoodProduct, error) { return s.p, s.err }

func TestCatalog(t *testing.T) {
	p := &entity.FoodProduct{Name: "Stored"}
	got, err := NewCatalog(stubStore{p: p}, nil).LookupProduct(context.Background(), "12345678")
	if err != nil || got != p {
		t.Fatalf("expected stored product, got %v %v", got, err)
	}
	_, err = NewCatalog(stubStore{err: common.ErrNotFound}, nil).LookupProduct(context.Background(), "12345678")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = NewCatalog(stubStore{err: errors.New("disk")}, nil).LookupProduct(context.Background(), "12345678")
	if !errors.Is(err, common.ErrNetwork) {
		t.Fatalf("expected catalog failure classified as network, got %v", err)
	}
}

func TestValidateProductSchema(t *testing.T) {
	ok := `{"name":"Kibble","barcode":"12345678","nutritional_info":{"protein":25,"ingredients":["Chicken"]}}`
	if err := ValidateJSONAgainstSchema(ProductSchema, []byte(ok)); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
	for _, bad := range []string{
		`{"nutritional_info":{}}`,
		`{"name":"Kibble","nutritional_info":{"protein":250}}`,
		`{"name":"Kibble","barcode":"12","nutritional_info":{}}`,
		`not json`,
	} {
		if err := ValidateJSONAgainstSchema(ProductSchema, []byte(bad)); err == nil {
			t.Errorf("expected %s to be rejected", bad)
		} else if !strings.Contains(err.Error(), "schema") && !strings.Contains(err.Error(), "unmarshal") {
			t.Errorf("unexpected error text %v", err)
		}
	}
}
