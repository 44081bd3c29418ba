package storage

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	apperrors "github.com/anime-shed/image-search-go/internal/errors"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageLoader resolves an image location to decoded pixels.
type ImageLoader interface {
	Load(ctx context.Context, location string) (image.Image, error)
}

// Decode reads an image in any registered format. Undecodable data is an
// AnalysisFailure.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", apperrors.NewAnalysisFailure("failed to decode image", err)
	}
	return img, format, nil
}

// FileLoader reads images from the local filesystem.
type FileLoader struct{}

// NewFileLoader creates a local file loader
func NewFileLoader() ImageLoader {
	return FileLoader{}
}

func (FileLoader) Load(ctx context.Context, location string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("image file %q not found", location), err)
		}
		return nil, apperrors.NewAnalysisFailure(fmt.Sprintf("failed to open %q", location), err)
	}
	defer f.Close()

	img, _, err := Decode(f)
	return img, err
}
