package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"google.golang.org/grpc/codes"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/export"
	"github.com/joseph-ayodele/petfood-scanner/internal/ingest"
	"github.com/joseph-ayodele/petfood-scanner/internal/lookup"
	"github.com/joseph-ayodele/petfood-scanner/internal/ocr"
	"github.com/joseph-ayodele/petfood-scanner/internal/repository"
	"github.com/joseph-ayodele/petfood-scanner/internal/scan"
)

// Deps are the collaborators the HTTP surface needs. Nil repositories
// disable the routes that depend on them.
type Deps struct {
	Products   repository.ProductRepository
	Pets       repository.PetRepository
	Scans      repository.ScanRepository
	Export     *export.Service
	Ingestor   ingest.Ingestor
	Lookup     lookup.Lookup
	Recognizer ocr.Recognizer
	Analyzer   scan.Analyzer
	Scan       common.ScanConfig
	Logger     *slog.Logger
}

type Server struct {
	deps     Deps
	logger   *slog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		deps:   d,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /ws", s.handleScanSocket)
	if s.deps.Products != nil {
		s.mux.HandleFunc("GET /products", s.handleListProducts)
		s.mux.HandleFunc("GET /products/{barcode}", s.handleGetProduct)
	}
	if s.deps.Pets != nil {
		s.mux.HandleFunc("GET /pets", s.handleListPets)
		s.mux.HandleFunc("POST /pets", s.handleCreatePet)
	}
	if s.deps.Export != nil {
		s.mux.HandleFunc("GET /export.xlsx", s.handleExport)
	}
	if s.deps.Ingestor != nil {
		s.mux.HandleFunc("POST /ingest", s.handleIngest)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := common.CodeOf(err)
	status := httpStatus(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "code": code.String()})
}

func httpStatus(c codes.Code) int {
	switch c {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition:
		return http.StatusConflict
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.Canceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	return nil
}
