package jobs

import (
	"context"
	"time"

	"resort/internal/domain"
	"resort/internal/models"
)

type HoldExpirer interface {
	ExpireHolds(ctx context.Context) (int, error)
}

type Backuper interface {
	PerformBackup(ctx context.Context) (string, error)
	CleanupOldBackups() int
}

type ReportSaver interface {
	SaveFile(ctx context.Context, start, end time.Time) (string, error)
}

type ReminderSender interface {
	SendTomorrow(ctx context.Context) (int, error)
}

func HoldSweep(s HoldExpirer) Func {
	return s.ExpireHolds
}

// Backup snapshots the database and then prunes copies past retention.
func Backup(b Backuper) Func {
	return func(ctx context.Context) (int, error) {
		if _, err := b.PerformBackup(ctx); err != nil {
			return 0, err
		}
		return b.CleanupOldBackups(), nil
	}
}

// ScheduleExport saves a workbook covering today through aheadDays.
func ScheduleExport(r ReportSaver, now domain.Clock, aheadDays int) Func {
	return func(ctx context.Context) (int, error) {
		start := models.DateOf(now())
		if _, err := r.SaveFile(ctx, start, start.AddDate(0, 0, aheadDays)); err != nil {
			return 0, err
		}
		return 1, nil
	}
}

func Reminders(r ReminderSender) Func {
	return r.SendTomorrow
}
