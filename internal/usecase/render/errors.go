package render

import "errors"

// Sentinel errors for template rendering.
var (
	// ErrMissingPlaceholder indicates that a template references a field
	// outside the recognized set.
	ErrMissingPlaceholder = errors.New("unknown template placeholder")

	// ErrMalformedTemplate indicates an unbalanced brace or an unsupported
	// format specifier.
	ErrMalformedTemplate = errors.New("malformed template")
)
