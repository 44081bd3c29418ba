package validation

import (
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/image-search-go/internal/errors"
)

// Location schemes understood by the image loaders.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeAzure = "az"
)

// LocationValidator checks image locations before they are catalogued or
// fetched. A location is either a local file path or a URL whose scheme
// and host are allow-listed.
type LocationValidator struct {
	allowedSchemes []string
	allowedHosts   []string
	allowLocal     bool
}

// NewLocationValidator allows local paths and http, https and az URLs on any host
func NewLocationValidator() *LocationValidator {
	return &LocationValidator{
		allowedSchemes: []string{SchemeHTTP, SchemeHTTPS, SchemeAzure},
		allowedHosts:   []string{}, // empty means all hosts allowed
		allowLocal:     true,
	}
}

// NewLocationValidatorWithOptions creates a validator with custom allow lists
func NewLocationValidatorWithOptions(schemes []string, hosts []string, allowLocal bool) *LocationValidator {
	return &LocationValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
		allowLocal:     allowLocal,
	}
}

// IsRemote reports whether location is written as a URL.
func IsRemote(location string) bool {
	return strings.Contains(location, "://")
}

// ValidateLocation validates a local path or remote image URL
func (v *LocationValidator) ValidateLocation(location string) error {
	if strings.TrimSpace(location) == "" {
		return apperrors.NewValidationError("location cannot be empty", nil)
	}
	if strings.ContainsRune(location, 0) {
		return apperrors.NewValidationError("location contains a NUL byte", nil)
	}

	if !IsRemote(location) {
		if !v.allowLocal {
			return apperrors.NewValidationError("local paths not allowed", nil)
		}
		return nil
	}

	parsedURL, err := url.Parse(location)
	if err != nil {
		return apperrors.NewValidationError("invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if parsedURL.Scheme == SchemeAzure && strings.Trim(parsedURL.Path, "/") == "" {
		return apperrors.NewValidationError("blob location must name a blob", nil)
	}

	if !v.isHostAllowed(parsedURL.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	return nil
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *LocationValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *LocationValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}
