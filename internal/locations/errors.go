package locations

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when operating on an id absent from the
// collection.
var ErrNotFound = errors.New("location not found")

// ValidationError reports every violated rule on a candidate, not just the
// first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid location: " + strings.Join(e.Violations, "; ")
}

// DuplicateError reports a case- and whitespace-insensitive name collision.
// Its message contains "already"; callers depend on that substring.
type DuplicateError struct {
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("location named %q already exists", e.Name)
}
