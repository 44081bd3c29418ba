package storage

import (
	"context"
	"image"
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/image-search-go/internal/errors"
	"github.com/anime-shed/image-search-go/pkg/validation"
)

// Router dispatches a location to the loader for its scheme after
// validating it.
type Router struct {
	validator *validation.LocationValidator
	local     ImageLoader
	web       ImageLoader
	blob      ImageLoader
}

// NewRouter builds a router. web and blob may be nil, in which case their
// schemes are rejected.
func NewRouter(validator *validation.LocationValidator, local, web, blob ImageLoader) *Router {
	if validator == nil {
		validator = validation.NewLocationValidator()
	}
	return &Router{validator: validator, local: local, web: web, blob: blob}
}

func (r *Router) Load(ctx context.Context, location string) (image.Image, error) {
	if err := r.validator.ValidateLocation(location); err != nil {
		return nil, err
	}
	if !validation.IsRemote(location) {
		return r.local.Load(ctx, location)
	}

	scheme := ""
	if u, err := url.Parse(location); err == nil {
		scheme = strings.ToLower(u.Scheme)
	}
	var loader ImageLoader
	switch scheme {
	case validation.SchemeHTTP, validation.SchemeHTTPS:
		loader = r.web
	case validation.SchemeAzure:
		loader = r.blob
	}
	if loader == nil {
		return nil, apperrors.NewValidationError("no image source configured for scheme "+scheme, nil)
	}
	return loader.Load(ctx, location)
}
