package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
	"github.com/joseph-ayodele/petfood-scanner/internal/lookup"
	"github.com/joseph-ayodele/petfood-scanner/internal/repository"
)

const barcode = "0123456789012"

type stubProducts struct {
	repository.ProductRepository
	byBarcode map[string]*entity.FoodProduct
}

func (s stubProducts) GetByBarcode(_ context.Context, code string) (*entity.FoodProduct, error) {
	if p, ok := s.byBarcode[code]; ok {
		return p, nil
	}
	return nil, common.ErrNotFound
}

func (s stubProducts) List(context.Context, repository.ProductFilter) ([]*entity.FoodProduct, error) {
	var out []*entity.FoodProduct
	for _, p := range s.byBarcode {
		out = append(out, p)
	}
	return out, nil
}

type stubPets struct {
	repository.PetRepository
	mu   sync.Mutex
	pets map[uuid.UUID]*entity.PetProfile
}

func (s *stubPets) GetByID(_ context.Context, id uuid.UUID) (*entity.PetProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pets[id]; ok {
		return p, nil
	}
	return nil, common.ErrNotFound
}

func (s *stubPets) CreatePet(_ context.Context, p *entity.PetProfile) (*entity.PetProfile, error) {
	if p.Species != "dog" && p.Species != "cat" {
		return nil, common.ErrValidation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.ID = uuid.New()
	s.pets[cp.ID] = &cp
	return &cp, nil
}

type stubScans struct {
	repository.ScanRepository
	mu      sync.Mutex
	records []*entity.ScanRecord
}

func (s *stubScans) Record(_ context.Context, rec *entity.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *stubScans) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type fixture struct {
	srv      *httptest.Server
	pets     *stubPets
	scans    *stubScans
	product  *entity.FoodProduct
	petID    uuid.UUID
	lookedUp atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		product: &entity.FoodProduct{
			ID:        uuid.New(),
			Barcode:   barcode,
			Name:      "Chicken Dinner",
			Nutrition: entity.NutritionalInfo{Ingredients: []string{"Chicken", "Rice"}},
		},
		scans: &stubScans{},
		petID: uuid.New(),
	}
	f.pets = &stubPets{pets: map[uuid.UUID]*entity.PetProfile{
		f.petID: {ID: f.petID, Name: "Rex", Species: "dog", Sensitivities: entity.ParseSensitivities([]string{"chicken"})},
	}}
	lk := lookup.Func(func(_ context.Context, code string) (*entity.FoodProduct, error) {
		f.lookedUp.Add(1)
		if code == barcode {
			return f.product, nil
		}
		return nil, common.NotFoundLookup(code)
	})
	s := New(Deps{
		Products: stubProducts{byBarcode: map[string]*entity.FoodProduct{}},
		Pets:     f.pets,
		Scans:    f.scans,
		Lookup:   lk,
		Scan: common.ScanConfig{
			AutoAdvanceDelay:     5 * time.Millisecond,
			LookupTimeout:        time.Second,
			AnalysisPollInterval: 2 * time.Millisecond,
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	f.srv = httptest.NewServer(s)
	t.Cleanup(f.srv.Close)
	return f
}

type message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if data != nil {
		msg["data"] = data
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatal(err)
	}
}

// readUntil reads messages until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(message) bool) message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var m message
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(m) {
			return m
		}
	}
}

func transitionTo(state string) func(message) bool {
	return func(m message) bool {
		if m.Type != "transition" {
			return false
		}
		var tr struct {
			To string `json:"to"`
		}
		_ = json.Unmarshal(m.Data, &tr)
		return tr.To == state
	}
}

func ofType(typ string) func(message) bool {
	return func(m message) bool { return m.Type == typ }
}

func TestScanSocketCompletesScan(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)

	readUntil(t, conn, ofType("session"))
	send(t, conn, "start", nil)
	readUntil(t, conn, transitionTo("awaiting_capture"))

	send(t, conn, "barcode", map[string]any{"value": barcode, "type": "ean13", "confidence": 0.95})
	readUntil(t, conn, transitionTo("product_found"))

	send(t, conn, "confirm", nil)
	readUntil(t, conn, transitionTo("awaiting_pet_selection"))

	send(t, conn, "select_pets", map[string]any{"pet_ids": []uuid.UUID{f.petID}})
	m := readUntil(t, conn, ofType("outcome"))

	var out struct {
		FinalState string `json:"final_state"`
		Result     struct {
			Method string `json:"method"`
		} `json:"result"`
		Assessments []struct {
			PetName       string `json:"pet_name"`
			SeverityLevel string `json:"severity_level"`
		} `json:"assessments"`
	}
	if err := json.Unmarshal(m.Data, &out); err != nil {
		t.Fatal(err)
	}
	if out.FinalState != "completed" || out.Result.Method != "barcode_only" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(out.Assessments) != 1 || out.Assessments[0].PetName != "Rex" || out.Assessments[0].SeverityLevel != "moderate" {
		t.Fatalf("assessments = %+v", out.Assessments)
	}
	if f.scans.count() != 1 {
		t.Fatalf("expected the outcome to be recorded, got %d", f.scans.count())
	}
	rec := f.scans.records[0]
	if rec.Barcode != barcode || rec.PetID == nil || *rec.PetID != f.petID || rec.Severity != "moderate" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestScanSocketErrors(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)
	readUntil(t, conn, ofType("session"))

	tests := []struct {
		name     string
		typ      string
		data     any
		wantCode string
	}{
		{"bad transition", "confirm", nil, "FailedPrecondition"},
		{"unknown type", "teleport", nil, "InvalidArgument"},
		{"missing data", "barcode", nil, "InvalidArgument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, tt.typ, tt.data)
			m := readUntil(t, conn, ofType("error"))
			var e errorData
			if err := json.Unmarshal(m.Data, &e); err != nil {
				t.Fatal(err)
			}
			if e.Code != tt.wantCode || e.Command != tt.typ {
				t.Fatalf("error = %+v", e)
			}
		})
	}

	t.Run("unknown pet", func(t *testing.T) {
		send(t, conn, "start", nil)
		readUntil(t, conn, ofType("ack"))
		send(t, conn, "select_pets", map[string]any{"pet_ids": []uuid.UUID{uuid.New()}})
		m := readUntil(t, conn, ofType("error"))
		var e errorData
		_ = json.Unmarshal(m.Data, &e)
		if e.Code != "NotFound" {
			t.Fatalf("error = %+v", e)
		}
	})
}

func TestGetProductFallsBackToLookup(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/products/" + barcode)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var p entity.FoodProduct
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Name != "Chicken Dinner" || f.lookedUp.Load() != 1 {
		t.Fatalf("product = %+v, lookups = %d", p, f.lookedUp.Load())
	}

	for path, want := range map[string]int{
		"/products/12345678901":  http.StatusBadRequest,
		"/products/98765432":     http.StatusNotFound,
		"/products?limit=banana": http.StatusBadRequest,
		"/products?limit=5":      http.StatusOK,
		"/healthz":               http.StatusOK,
	} {
		resp, err := http.Get(f.srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("GET %s = %d, want %d", path, resp.StatusCode, want)
		}
	}
}

func TestCreatePet(t *testing.T) {
	f := newFixture(t)
	post := func(body string) *http.Response {
		t.Helper()
		resp, err := http.Post(f.srv.URL+"/pets", "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := post(`{"name":"Milo","species":"cat","sensitivities":["fish"]}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var pet entity.PetProfile
	if err := json.NewDecoder(resp.Body).Decode(&pet); err != nil {
		t.Fatal(err)
	}
	if pet.ID == uuid.Nil || pet.Name != "Milo" || len(pet.Sensitivities) != 1 {
		t.Fatalf("pet = %+v", pet)
	}

	if resp := post(`{"species":"dog"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing name: status = %d", resp.StatusCode)
	}
	if resp := post(`{"name":"Rex","species":"dog","colour":"brown"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field: status = %d", resp.StatusCode)
	}
	if resp := post(`{"name":"Nemo","species":"fish"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad species: status = %d", resp.StatusCode)
	}
}

type flakyDB struct {
	mu   sync.Mutex
	fail bool
}

func (d *flakyDB) HealthCheck(context.Context, time.Duration, *slog.Logger) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("connection refused")
	}
	return nil
}

type recordingHealth struct {
	mu   sync.Mutex
	last map[string]healthpb.HealthCheckResponse_ServingStatus
}

func (h *recordingHealth) SetServingStatus(svc string, st healthpb.HealthCheckResponse_ServingStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[svc] = st
}

func (h *recordingHealth) get(svc string) healthpb.HealthCheckResponse_ServingStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last[svc]
}

func TestReportDBHealth(t *testing.T) {
	db := &flakyDB{}
	hs := &recordingHealth{last: map[string]healthpb.HealthCheckResponse_ServingStatus{}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ReportDBHealth(ctx, db, hs, 5*time.Millisecond, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	eventually := func(want healthpb.HealthCheckResponse_ServingStatus) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for hs.get(ScanServiceName) != want {
			if time.Now().After(deadline) {
				t.Fatalf("status stayed %s, want %s", hs.get(ScanServiceName), want)
			}
			time.Sleep(2 * time.Millisecond)
		}
	}
	eventually(healthpb.HealthCheckResponse_SERVING)

	db.mu.Lock()
	db.fail = true
	db.mu.Unlock()
	eventually(healthpb.HealthCheckResponse_NOT_SERVING)
	if hs.get("") != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("overall status not updated")
	}

	cancel()
	<-done
}
