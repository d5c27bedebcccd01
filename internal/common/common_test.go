package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func validConfig() Config {
	return Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "/tmp/petscan.db"},
		Scan:     ScanConfig{AutoAdvanceConfidence: 0.8, AnalysisMaxAttempts: 30},
		Lookup:   LookupConfig{BaseURL: "https://example.org"},
		OCR:      OCRConfig{Engine: "tesseract"},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"postgres", func(c *Config) { c.Database.Driver = "postgres" }, true},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, false},
		{"confidence above one", func(c *Config) { c.Scan.AutoAdvanceConfidence = 1.5 }, false},
		{"no analysis attempts", func(c *Config) { c.Scan.AnalysisMaxAttempts = 0 }, false},
		{"unknown engine", func(c *Config) { c.OCR.Engine = "paddle" }, false},
		{"lookup without url", func(c *Config) { c.Lookup.BaseURL = "" }, false},
		{"disabled lookup without url", func(c *Config) { c.Lookup.BaseURL, c.Lookup.Disabled = "", true }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var appErr *AppError
			if !errors.As(err, &appErr) || appErr.Code != "CONFIG_ERROR" || !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected CONFIG_ERROR wrapping ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("SCAN_BARCODE_COOLDOWN", "250ms")
	t.Setenv("SCAN_ANALYSIS_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("LOOKUP_DISABLED", "true")

	c := LoadConfig()
	if c.Database.Driver != "postgres" || c.Scan.BarcodeCooldown != 250*time.Millisecond {
		t.Fatalf("env not applied: %+v", c)
	}
	if c.Scan.AnalysisMaxAttempts != 30 {
		t.Fatalf("unparsable value should keep the default, got %d", c.Scan.AnalysisMaxAttempts)
	}
	if !c.Lookup.Disabled {
		t.Fatalf("LOOKUP_DISABLED not applied")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{nil, codes.OK},
		{fmt.Errorf("lookup: %w", ErrTimeout), codes.DeadlineExceeded},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{NotFoundLookup("12345678"), codes.NotFound},
		{NetworkLookup("12345678", errors.New("dial tcp")), codes.Unavailable},
		{fmt.Errorf("capture: %w", ErrCaptureInvalid), codes.InvalidArgument},
		{ErrSurfaceActive, codes.FailedPrecondition},
		{ErrSessionClosed, codes.FailedPrecondition},
		{status.Error(codes.AlreadyExists, "dup"), codes.AlreadyExists},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		if got := CodeOf(tt.err); got != tt.want {
			t.Errorf("CodeOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestToStatus(t *testing.T) {
	if ToStatus(nil) != nil {
		t.Fatalf("nil error should stay nil")
	}
	s, ok := status.FromError(ToStatus(fmt.Errorf("pet: %w", ErrNotFound)))
	if !ok || s.Code() != codes.NotFound {
		t.Fatalf("unexpected status %v", s)
	}
	orig := status.Error(codes.Aborted, "busy")
	if ToStatus(orig) != orig {
		t.Fatalf("status errors should pass through")
	}
}

func TestLookupErrorClassification(t *testing.T) {
	err := NetworkLookup("0123456789012", context.DeadlineExceeded)
	if !errors.Is(err, ErrNetwork) || !errors.Is(err, ErrLookupFailure) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("network lookup error lost its classification: %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("network failure must not read as not found")
	}
	if nf := NotFoundLookup("0123456789012"); !errors.Is(nf, ErrNotFound) || errors.Is(nf, ErrNetwork) {
		t.Fatalf("not-found lookup misclassified: %v", nf)
	}
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("name", " ", Required).
		Field("barcode", "12345", Barcode).
		Field("brand", "Acme", MaxLength(3)).
		Field("pet_id", uuid.Nil, UUID).
		Field("confidence", 0.5, UnitInterval)
	if got := len(v.Errors()); got != 4 {
		t.Fatalf("expected 4 failures, got %d: %s", got, v.ErrorMessage())
	}
	if !errors.Is(v.Error(), ErrValidation) {
		t.Fatalf("Error() should wrap ErrValidation")
	}
	if s, _ := status.FromError(ValidateAndReturnError(v)); s.Code() != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %s", s.Code())
	}

	ok := NewValidator().
		Field("barcode", "0123456789012", Required, Barcode).
		Field("barcode8", "12345678", Barcode).
		Field("pet_id", uuid.NewString(), UUID)
	if ok.HasErrors() || ok.Error() != nil || ValidateAndReturnError(ok) != nil {
		t.Fatalf("unexpected failures: %s", ok.ErrorMessage())
	}
}

func TestContextValues(t *testing.T) {
	ctx := WithPetID(WithSessionID(WithRequestID(context.Background(), "req-1"), "sess-1"), "pet-1")
	if RequestIDFromContext(ctx) != "req-1" || SessionIDFromContext(ctx) != "sess-1" || PetIDFromContext(ctx) != "pet-1" {
		t.Fatalf("context values not round-tripped")
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Fatalf("empty context should yield empty id")
	}
}
