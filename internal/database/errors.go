package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"resort/internal/domain"

	"github.com/mattn/go-sqlite3"
)

// mapError classifies driver errors: lock contention and I/O failures become
// TransientStoreError, everything else is wrapped with the operation name.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrIoErr, sqlite3.ErrCantOpen, sqlite3.ErrFull:
			return &domain.TransientStoreError{Op: op, Err: err}
		}
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return &domain.TransientStoreError{Op: op, Err: err}
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}

func notFoundOr(op, entity string, id any, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFoundError(entity, id)
	}
	return mapError(op, err)
}
