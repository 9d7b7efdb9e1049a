package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"jobmarket/internal/docstore"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrAuthorization      = errors.New("not authorized")
	ErrListingUnavailable = errors.New("listing unavailable")
	ErrSelfApplication    = errors.New("cannot apply to own listing")
	ErrIncompleteProfile  = errors.New("profile incomplete")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrNotFound           = errors.New("not found")
)

// ValidationError lists offending fields with a short reason each.
type ValidationError struct {
	Fields map[string]string
}

func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

func (e *ValidationError) Add(field, reason string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = reason
}

// OrNil returns nil when no field was added.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation error: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StoreError translates a docstore failure. Missing documents become
// ErrNotFound; everything else is ErrStoreUnavailable with the cause kept.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
