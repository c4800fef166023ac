package criteria

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery is matched by every QueryError raised for a fragment
	// without a source clause.
	ErrEmptyQuery = errors.New("criteria: fragment has no source clause")

	// ErrMissingTable is returned when an entity type does not declare its
	// table through a bun.BaseModel `table:` tag.
	ErrMissingTable = errors.New("criteria: entity does not declare a table")

	// ErrUnknownProperty is returned when a sort or filter property does
	// not map to a column of the bound entity.
	ErrUnknownProperty = errors.New("criteria: unknown property")
)

// QueryError is raised by the renderers of a Fragment that cannot produce
// SQL. It is a configuration defect and is never retried.
type QueryError struct {
	Op      string
	Message string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("criteria: %s: %s", e.Op, e.Message)
}

// Is lets errors.Is(err, ErrEmptyQuery) match every QueryError.
func (e *QueryError) Is(target error) bool {
	return target == ErrEmptyQuery
}

// ConfigError reports invalid engine configuration detected at startup:
// ambiguous operator tables, undeclared entity tables, invalid pageables.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	return "criteria: config error in " + e.Field + ": " + e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
