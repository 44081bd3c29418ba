// Package tesseract recognizes text through the tesseract OCR engine.
package tesseract

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/anime-shed/image-search-go/internal/analyzer"
)

// Extractor runs tesseract on the grayscale rendition of an image. A
// client is created per call since gosseract clients are not safe for
// concurrent use.
type Extractor struct {
	language string
}

// New creates an extractor for a tesseract language code such as "eng".
func New(language string) *Extractor {
	if language == "" {
		language = "eng"
	}
	return &Extractor{language: language}
}

// Extract returns the recognized text.
func (e *Extractor) Extract(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, analyzer.Grayscale(img)); err != nil {
		return "", fmt.Errorf("encode image for tesseract: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.language); err != nil {
		return "", fmt.Errorf("set tesseract language %q: %w", e.language, err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("load image into tesseract: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract recognition: %w", err)
	}
	return text, nil
}
