package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/petfood-scanner/constants"
)

// AllowedExt reports whether ext names a label format the pipeline can read.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
