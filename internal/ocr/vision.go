package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/petfood-scanner/constants"
)

// ErrEmptyText is returned when the engine found no text on the capture.
var ErrEmptyText = errors.New("no text recognized")

// VisionRecognizer recognizes labels with Google Cloud Vision document text
// detection.
type VisionRecognizer struct {
	client *vision.ImageAnnotatorClient
	logger *slog.Logger
}

// NewVisionRecognizer creates a client from credentialsFile, or from the
// default credentials chain when it is empty.
func NewVisionRecognizer(ctx context.Context, credentialsFile string, logger *slog.Logger) (*VisionRecognizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}
	return &VisionRecognizer{client: client, logger: logger}, nil
}

func (v *VisionRecognizer) Recognize(ctx context.Context, img []byte) (Result, error) {
	start := time.Now()
	if _, err := ValidateCapture(img); err != nil {
		return Result{SourceType: constants.IMAGE}, err
	}
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: img},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}
	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		v.logger.Error("vision.annotate.error", "error", err)
		return Result{SourceType: constants.IMAGE, Method: "vision"}, fmt.Errorf("vision annotate: %w", err)
	}
	res, err := visionResult(resp)
	res.Duration = time.Since(start)
	if err == nil {
		v.logger.Debug("vision.annotate.ok", "chars", len(res.Text), "confidence", res.Confidence)
	}
	return res, err
}

// visionResult flattens the first image response. Page confidences are
// averaged and blended with the label heuristic.
func visionResult(resp *visionpb.BatchAnnotateImagesResponse) (Result, error) {
	out := Result{SourceType: constants.IMAGE, Method: "vision"}
	if resp == nil || len(resp.Responses) == 0 {
		return out, fmt.Errorf("vision: %w", ErrEmptyText)
	}
	r := resp.Responses[0]
	if r.Error != nil && r.Error.Message != "" {
		return out, fmt.Errorf("vision: %s", r.Error.Message)
	}
	ann := r.FullTextAnnotation
	if ann == nil || strings.TrimSpace(ann.Text) == "" {
		return out, fmt.Errorf("vision: %w", ErrEmptyText)
	}

	var sum float32
	langs := map[string]bool{}
	for _, p := range ann.Pages {
		sum += p.Confidence
		if p.Property != nil {
			for _, l := range p.Property.DetectedLanguages {
				if l.LanguageCode != "" && !langs[l.LanguageCode] {
					langs[l.LanguageCode] = true
					if out.Language == "" {
						out.Language = l.LanguageCode
					}
				}
			}
		}
	}
	var engine float32
	if len(ann.Pages) > 0 {
		engine = sum / float32(len(ann.Pages))
	}
	out.Text = Normalize(ann.Text)
	out.Confidence = blend(engine, heuristicConfidence(out.Text))
	return out, nil
}

// Close closes the underlying Vision client.
func (v *VisionRecognizer) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
