package constants

import "strings"

const (
	IMAGE = "IMAGE"
	TXT   = "TXT"
)

// FileTypes holds the label formats accepted by the label pipeline.
var FileTypes = []string{IMAGE, TXT}

// AllowedExtensions holds the default allowed file extensions for label ingestion.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"heic": {},
	"heif": {},
	"txt":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns IMAGE, TXT, or "" for unsupported extensions.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "jpg", "jpeg", "png", "gif", "heic", "heif":
		return IMAGE
	case "txt":
		return TXT
	}
	return ""
}

// IsHEIC reports whether ext is a HEIC/HEIF photo, which must be converted
// before recognition.
func IsHEIC(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif":
		return true
	}
	return false
}
