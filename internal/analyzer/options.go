package analyzer

import (
	"fmt"

	apperrors "github.com/anime-shed/image-search-go/internal/errors"
)

const (
	// DefaultLevels is the default number of gray levels in a co-occurrence matrix.
	DefaultLevels = 64
	// DefaultDX and DefaultDY form the default neighbor offset.
	DefaultDX = 1
	DefaultDY = 0

	// MaxLevels is the largest level count whose square fits in an int32.
	MaxLevels = 46340
)

// TextureOptions configures co-occurrence matrix construction.
type TextureOptions struct {
	Levels int
	DX     int
	DY     int
}

// DefaultTextureOptions returns 64 levels with a (1, 0) offset.
func DefaultTextureOptions() TextureOptions {
	return TextureOptions{
		Levels: DefaultLevels,
		DX:     DefaultDX,
		DY:     DefaultDY,
	}
}

// WithLevels returns options with the given gray level count
func (opts TextureOptions) WithLevels(levels int) TextureOptions {
	opts.Levels = levels
	return opts
}

// WithOffset returns options with the given neighbor offset
func (opts TextureOptions) WithOffset(dx, dy int) TextureOptions {
	opts.DX = dx
	opts.DY = dy
	return opts
}

// Validate fails with a ConfigurationError when the level count is out of range.
func (opts TextureOptions) Validate() error {
	if opts.Levels < 1 || opts.Levels > MaxLevels {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("gray levels must be in [1, %d], got %d", MaxLevels, opts.Levels), nil)
	}
	return nil
}
