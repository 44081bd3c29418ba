package storage

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/anime-shed/image-search-go/internal/errors"
	"github.com/anime-shed/image-search-go/pkg/validation"
)

func TestFileLoader_Load(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(good, encodePNG(t, 5, 6), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewFileLoader()

	img, err := loader.Load(context.Background(), good)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 5, 6) {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}

	tests := []struct {
		name     string
		location string
		errType  apperrors.ErrorType
	}{
		{"missing", filepath.Join(dir, "missing.png"), apperrors.ErrorTypeNotFound},
		{"corrupt", bad, apperrors.ErrorTypeAnalysisFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.Load(context.Background(), tt.location)
			if !apperrors.IsType(err, tt.errType) {
				t.Errorf("expected %s, got %v", tt.errType, err)
			}
		})
	}
}

type recordingLoader struct {
	name  string
	calls []string
}

func (r *recordingLoader) Load(_ context.Context, location string) (image.Image, error) {
	r.calls = append(r.calls, location)
	return image.NewGray(image.Rect(0, 0, 1, 1)), nil
}

func TestRouter_Dispatch(t *testing.T) {
	local := &recordingLoader{name: "local"}
	web := &recordingLoader{name: "web"}
	blob := &recordingLoader{name: "blob"}
	router := NewRouter(nil, local, web, blob)

	tests := []struct {
		location string
		want     *recordingLoader
	}{
		{"images/a.png", local},
		{"http://example.com/a.png", web},
		{"HTTPS://example.com/b.png", web},
		{"az://container/dir/c.png", blob},
	}
	for _, tt := range tests {
		if _, err := router.Load(context.Background(), tt.location); err != nil {
			t.Fatalf("Load(%s) error = %v", tt.location, err)
		}
		if last := tt.want.calls[len(tt.want.calls)-1]; last != tt.location {
			t.Errorf("%s routed to wrong loader (last %s call %q)", tt.location, tt.want.name, last)
		}
	}
	if len(local.calls) != 1 || len(web.calls) != 2 || len(blob.calls) != 1 {
		t.Errorf("calls local=%d web=%d blob=%d", len(local.calls), len(web.calls), len(blob.calls))
	}
}

func TestRouter_Rejects(t *testing.T) {
	router := NewRouter(validation.NewLocationValidator(), &recordingLoader{}, &recordingLoader{}, nil)

	for _, location := range []string{"", "ftp://example.com/a.png", "az://container/blob.png"} {
		_, err := router.Load(context.Background(), location)
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) || appErr.Type != apperrors.ErrorTypeValidation {
			t.Errorf("Load(%q) err = %v, want validation error", location, err)
		}
	}
}

func TestParseBlobLocation(t *testing.T) {
	container, blob, err := ParseBlobLocation("az://photos/2024/05/cat.png")
	if err != nil || container != "photos" || blob != "2024/05/cat.png" {
		t.Errorf("ParseBlobLocation() = (%q, %q, %v)", container, blob, err)
	}
	for _, bad := range []string{"az://photos", "az:///blob.png", "%zz"} {
		if _, _, err := ParseBlobLocation(bad); err == nil {
			t.Errorf("ParseBlobLocation(%q) should fail", bad)
		}
	}
}
