package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
)

type ingestRequest struct {
	Path       string `json:"path"`
	Force      bool   `json:"force,omitempty"`
	Recursive  bool   `json:"recursive,omitempty"`
	SkipHidden *bool  `json:"skip_hidden,omitempty"`
}

type ingestItem struct {
	SourcePath   string `json:"source_path"`
	Queued       bool   `json:"queued"`
	Deduplicated bool   `json:"deduplicated"`
	HashHex      string `json:"content_hash,omitempty"`
	FileExt      string `json:"file_ext,omitempty"`
	SeenAt       string `json:"seen_at,omitempty"`
	Error        string `json:"error,omitempty"`
}

// handleIngest queues one label file, or every label file under a directory
// when recursive is set.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		s.writeError(w, r, common.InvalidArgumentError("path is required"))
		return
	}

	if !req.Recursive {
		s.logger.Info("starting file ingest", "path", path, "force", req.Force)
		res, err := s.deps.Ingestor.IngestPath(r.Context(), path, req.Force)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, ingestItem{
			SourcePath:   res.SourcePath,
			Queued:       res.Queued,
			Deduplicated: res.Deduplicated,
			HashHex:      res.HashHex,
			FileExt:      res.FileExt,
			SeenAt:       res.SeenAt.UTC().Format(time.RFC3339),
		})
		return
	}

	skipHidden := true
	if req.SkipHidden != nil {
		skipHidden = *req.SkipHidden
	}
	s.logger.Info("starting directory ingest", "root", path, "skip_hidden", skipHidden)
	results, stats, err := s.deps.Ingestor.IngestDirectory(r.Context(), path, skipHidden)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := make([]ingestItem, 0, len(results))
	for _, res := range results {
		item := ingestItem{
			SourcePath:   res.SourcePath,
			Queued:       res.Queued,
			Deduplicated: res.Deduplicated,
			HashHex:      res.HashHex,
			FileExt:      res.FileExt,
			Error:        res.Err,
		}
		if !res.SeenAt.IsZero() {
			item.SeenAt = res.SeenAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"scanned":      stats.Scanned,
		"matched":      stats.Matched,
		"succeeded":    stats.Succeeded,
		"deduplicated": stats.Deduplicated,
		"failed":       stats.Failed,
		"results":      items,
	})
}
