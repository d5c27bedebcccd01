package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/repository"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.ProductFilter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Source:   q.Get("source"),
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			s.writeError(w, r, common.InvalidArgumentError("limit must be a non-negative integer"))
			return
		}
		f.Limit = n
	}
	ps, err := s.deps.Products.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": ps})
}

// handleGetProduct serves the local catalog first and falls back to the
// configured lookup chain.
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PathValue("barcode"))
	v := common.NewValidator().Field("barcode", code, common.Required, common.Barcode)
	if err := common.ValidateAndReturnError(v); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.deps.Products.GetByBarcode(r.Context(), code)
	if errors.Is(err, common.ErrNotFound) && s.deps.Lookup != nil {
		p, err = s.deps.Lookup.LookupProduct(r.Context(), code)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
