package secret

import "errors"

var (
	// ErrInvalidRef is returned for a malformed secretref value.
	ErrInvalidRef = errors.New("secret: invalid reference")

	// ErrUnknownProvider is returned when a reference names a provider the
	// resolver or registry does not know.
	ErrUnknownProvider = errors.New("secret: provider not registered")

	// ErrNotFound is returned when a provider has no value for a reference.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmptyValue is returned by strict resolvers when a provider yields
	// an empty value.
	ErrEmptyValue = errors.New("secret: empty value")

	// ErrMissingEnv is returned by ExpandEnvStrict for unset variables.
	ErrMissingEnv = errors.New("secret: missing environment variables")
)
