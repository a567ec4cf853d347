package utils

import (
	"errors"
	"fmt"
)

type PermError string

func (e PermError) Error() string {
	return string(e)
}

func (e PermError) IsPermanent() bool {
	return true
}

type ErrKind string

const (
	// KindConfig is an unknown data type, a malformed argument or an invalid option
	KindConfig ErrKind = "config"
	// KindCoercion is a scalar that does not parse as its declared type
	KindCoercion ErrKind = "coercion"
	// KindIO is a failed create, write or stat of an output file
	KindIO ErrKind = "io"
)

// FixtureError carries the kind of failure and the table it happened on, if any.
type FixtureError struct {
	Kind  ErrKind
	Table string
	Err   error
}

func (e *FixtureError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error on table %s: %s", e.Kind, e.Table, e.Err)
}

func (e *FixtureError) Unwrap() error {
	return e.Err
}

func NewFixtureError(kind ErrKind, table string, err error) error {
	return &FixtureError{Kind: kind, Table: table, Err: err}
}

// IsKind reports whether any FixtureError in err's chain has the given kind.
func IsKind(err error, kind ErrKind) bool {
	var fe *FixtureError
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}
