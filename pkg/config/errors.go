package config

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaVersionMismatch is returned when the declarative file was
	// written for a different tool version. This is a hard compatibility
	// gate, not a warning.
	ErrSchemaVersionMismatch = errors.New("config schema version does not match tool version")

	// ErrUnsupportedProvider is returned for a provider tag outside the
	// supported set.
	ErrUnsupportedProvider = errors.New("unsupported cloud provider")
)

// ValidationError reports the first structurally invalid field found in the
// declarative file: its path and what it was expected to be.
type ValidationError struct {
	Field    string
	Expected string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: field %q: expected %s", e.Field, e.Expected)
}
