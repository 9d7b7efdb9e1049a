package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrAlreadyExists    = errors.New("document already exists")
	ErrPermissionDenied = errors.New("permission denied")
	ErrIndexRequired    = errors.New("query requires an index")
	ErrUnavailable      = errors.New("document store unavailable")
)

const pgInsufficientPrivilege = "42501"

// classify maps driver errors onto the store's error set.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNotFound, ErrAlreadyExists, ErrPermissionDenied, ErrIndexRequired, ErrUnavailable} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgInsufficientPrivilege {
		return fmt.Errorf("%s: %w: %s", op, ErrPermissionDenied, pgErr.Message)
	}
	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: timeout: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
