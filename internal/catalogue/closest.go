package catalogue

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/anime-shed/image-search-go/internal/analyzer"
	apperrors "github.com/anime-shed/image-search-go/internal/errors"
)

// Ranked is an image and its distance from a reference image.
type Ranked struct {
	Image    Image
	Distance float64
}

// Closest ranks the other images by the distance of their tag value to the
// value of image id, nearest first. Signed distances are ranked by magnitude
// and reported with their sign. Images without a value, and pairs the metric
// is undefined for, are left out. n <= 0 returns every candidate.
func (c *Catalogue) Closest(ctx context.Context, id uuid.UUID, tag string, n int) ([]Ranked, error) {
	tagger, ok := c.registry.Get(tag)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("tagger %q", tag), analyzer.ErrUnknownTagger)
	}
	metric, ok := tagger.(analyzer.Distancer)
	if !ok {
		return nil, apperrors.NewIncomparableValues(fmt.Sprintf("tagger %q has no distance", tag), nil)
	}

	ref, err := c.Image(ctx, id)
	if err != nil {
		return nil, err
	}
	refValue, ok := ref.Tag(tag)
	if !ok {
		return nil, apperrors.NewIncomparableValues(fmt.Sprintf("image %s has no %s value", id, tag), nil)
	}

	images, err := c.Images(ctx, All())
	if err != nil {
		return nil, err
	}

	ranked := make([]Ranked, 0, len(images))
	for _, img := range images {
		if img.ID == id {
			continue
		}
		v, ok := img.Tag(tag)
		if !ok {
			continue
		}
		d, defined, err := metric.Distance(refValue, v)
		if err != nil {
			return nil, err
		}
		if !defined {
			continue
		}
		ranked = append(ranked, Ranked{Image: img, Distance: d})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		di, dj := math.Abs(ranked[i].Distance), math.Abs(ranked[j].Distance)
		if di != dj {
			return di < dj
		}
		return ranked[i].Image.ID.String() < ranked[j].Image.ID.String()
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}
