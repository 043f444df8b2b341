package database

import (
	"context"
	"testing"
	"time"

	"resort/internal/domain"
	"resort/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationQueue(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	n := &models.Notification{
		Channel: models.ChannelEmail, Recipient: "guest@example.com", Subject: "Booking received",
		Body: "We got your request", Kind: "booking_created", RelatedID: 3,
	}
	require.NoError(t, db.EnqueueNotification(ctx, n))
	assert.NotZero(t, n.ID)
	assert.Equal(t, models.NotificationPending, n.Status)

	later := time.Now().Add(time.Hour)
	deferred := &models.Notification{Channel: models.ChannelTelegram, Recipient: "42", Body: "x", Kind: "k", NextRetryAt: &later}
	require.NoError(t, db.EnqueueNotification(ctx, deferred))

	pending, err := db.GetPendingNotifications(ctx, 10, time.Now())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, n.ID, pending[0].ID)

	msg := "smtp timeout"
	processed := time.Now()
	n.Status = models.NotificationFailed
	n.RetryCount = 3
	n.LastError = &msg
	n.ProcessedAt = &processed
	require.NoError(t, db.UpdateNotificationStatus(ctx, n))

	got, err := db.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationFailed, got.Status)
	assert.Equal(t, 3, got.RetryCount)
	require.NotNil(t, got.LastError)
	assert.Equal(t, msg, *got.LastError)
	assert.NotNil(t, got.ProcessedAt)

	_, err = db.GetNotification(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
