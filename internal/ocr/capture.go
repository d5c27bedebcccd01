package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
)

// CaptureInfo describes a decodable capture.
type CaptureInfo struct {
	Format string
	Width  int
	Height int
}

// ValidateCapture decodes only the image header. Empty, undecodable and
// zero-dimension captures fail with common.ErrCaptureInvalid.
func ValidateCapture(img []byte) (CaptureInfo, error) {
	if len(img) == 0 {
		return CaptureInfo{}, fmt.Errorf("%w: empty image", common.ErrCaptureInvalid)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return CaptureInfo{}, fmt.Errorf("%w: %v", common.ErrCaptureInvalid, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return CaptureInfo{}, fmt.Errorf("%w: zero dimension %dx%d", common.ErrCaptureInvalid, cfg.Width, cfg.Height)
	}
	return CaptureInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
