package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/export"
	"github.com/joseph-ayodele/petfood-scanner/internal/repository"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExport streams the product catalog (and optionally recent scans) as
// a workbook. Query parameters mirror the product list filter.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := export.Options{
		Filter: repository.ProductFilter{
			Query:    q.Get("q"),
			Category: q.Get("category"),
			Source:   q.Get("source"),
		},
		IncludeScans: q.Get("scans") == "1" || q.Get("scans") == "true",
	}
	if l := q.Get("scan_limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			s.writeError(w, r, common.InvalidArgumentError("scan_limit must be a positive integer"))
			return
		}
		opts.ScanLimit = n
	}

	xlsx, err := s.deps.Export.ExportXLSX(r.Context(), opts)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "err", err)
		s.writeError(w, r, err)
		return
	}

	name := fmt.Sprintf("petfood-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(xlsx)))
	_, _ = w.Write(xlsx)
}
