package database

import (
	"database/sql"
	"fmt"
	"time"

	"resort/internal/models"
)

func formatDate(t time.Time) string {
	return models.FormatDate(models.DateOf(t))
}

func parseDate(s string) (time.Time, error) {
	t, err := models.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt date column: %w", err)
	}
	return t, nil
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatDate(*t)
}

func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func fromUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
