package validation

import (
	"net/url"
	"strings"

	apperrors "go-catfood-scanner/internal/errors"
)

// HandleValidator checks photo handles before they reach a photo store
type HandleValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewHandleValidator creates a validator accepting every photo store scheme
func NewHandleValidator() *HandleValidator {
	return &HandleValidator{
		allowedSchemes: []string{"file", "azblob", "http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewHandleValidatorWithOptions creates a handle validator with custom options
func NewHandleValidatorWithOptions(schemes []string, hosts []string) *HandleValidator {
	return &HandleValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateHandle validates a photo handle such as file:///photos/a.jpg,
// azblob://container/blob.jpg or https://cdn.example.com/a.jpg
func (v *HandleValidator) ValidateHandle(handle string) error {
	if strings.TrimSpace(handle) == "" {
		return apperrors.NewValidationError("photo handle cannot be empty", nil)
	}

	parsed, err := url.Parse(handle)
	if err != nil {
		return apperrors.NewValidationError("invalid photo handle format", err)
	}

	if !v.isSchemeAllowed(parsed.Scheme) {
		return apperrors.NewValidationError("photo handle scheme not allowed", nil)
	}

	switch parsed.Scheme {
	case "file":
		if parsed.Path == "" {
			return apperrors.NewValidationError("file handle must have a path", nil)
		}
		return nil
	case "azblob":
		if parsed.Host == "" || strings.Trim(parsed.Path, "/") == "" {
			return apperrors.NewValidationError("blob handle must name a container and a blob", nil)
		}
		return nil
	}

	if parsed.Host == "" {
		return apperrors.NewValidationError("photo URL must have a valid host", nil)
	}
	if !v.isHostAllowed(parsed.Host) {
		return apperrors.NewValidationError("photo URL host not allowed", nil)
	}
	return nil
}

// isSchemeAllowed checks if the handle scheme is in the allowed list
func (v *HandleValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed returns true if no host restrictions are set
func (v *HandleValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}
