package database

import (
	"context"
	"time"

	"resort/internal/models"
)

const notificationColumns = `id, channel, recipient, subject, body, kind, related_id, status,
	retry_count, last_error, created_at, processed_at, next_retry_at`

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	err := row.Scan(
		&n.ID, &n.Channel, &n.Recipient, &n.Subject, &n.Body, &n.Kind, &n.RelatedID, &n.Status,
		&n.RetryCount, &n.LastError, &n.CreatedAt, &n.ProcessedAt, &n.NextRetryAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *queries) EnqueueNotification(ctx context.Context, n *models.Notification) error {
	query := `INSERT INTO notifications (channel, recipient, subject, body, kind, related_id, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if n.Status == "" {
		n.Status = models.NotificationPending
	}
	ts := now()
	result, err := s.q.ExecContext(ctx, query,
		n.Channel, n.Recipient, n.Subject, n.Body, n.Kind, n.RelatedID,
		n.Status, n.RetryCount, n.LastError, ts, utcPtr(n.NextRetryAt),
	)
	if err != nil {
		return mapError("enqueue notification", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return mapError("get last insert id", err)
	}
	n.ID = id
	n.CreatedAt = ts
	return nil
}

func (s *queries) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	n, err := scanNotification(s.q.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id))
	if err != nil {
		return nil, notFoundOr("get notification", "notification", id, err)
	}
	return n, nil
}

// GetPendingNotifications returns rows due for delivery, oldest first.
func (s *queries) GetPendingNotifications(ctx context.Context, limit int, at time.Time) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
              WHERE status IN ('pending', 'retry') AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC, id ASC LIMIT ?`
	rows, err := s.q.QueryContext(ctx, query, at.UTC(), limit)
	if err != nil {
		return nil, mapError("get pending notifications", err)
	}
	defer rows.Close()

	var items []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, mapError("scan notification", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("get pending notifications", err)
	}
	return items, nil
}

func (s *queries) UpdateNotificationStatus(ctx context.Context, n *models.Notification) error {
	query := `UPDATE notifications
              SET status = ?, retry_count = ?, last_error = ?, processed_at = ?, next_retry_at = ?
              WHERE id = ?`
	_, err := s.q.ExecContext(ctx, query, n.Status, n.RetryCount, n.LastError, utcPtr(n.ProcessedAt), utcPtr(n.NextRetryAt), n.ID)
	if err != nil {
		return mapError("update notification status", err)
	}
	return nil
}
