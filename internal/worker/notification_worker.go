package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"resort/internal/domain"
	"resort/internal/metrics"
	"resort/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultQueueKey      = "notifications:queue"
	defaultDeadLetterKey = "notifications:deadletter"
)

// NotificationWorker delivers outbox rows. Every notification is persisted
// first; redis or the local channel only carry ids so delivery starts without
// waiting for the next poll.
type NotificationWorker struct {
	store         domain.NotificationRepository
	sender        domain.Sender
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan int64
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	now           domain.Clock
	logger        *zerolog.Logger
}

var _ domain.NotificationQueue = (*NotificationWorker)(nil)

// NewNotificationWorker builds a worker with sane defaults. redisClient may be nil.
func NewNotificationWorker(store domain.NotificationRepository, sender domain.Sender, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *NotificationWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 5 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &NotificationWorker{
		store:         store,
		sender:        sender,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan int64, models.WorkerQueueSize),
		redisQueueKey: defaultQueueKey,
		deadLetterKey: defaultDeadLetterKey,
		pollInterval:  10 * time.Second,
		batchSize:     20,
		now:           time.Now,
		logger:        logger,
	}
}

// WithPolling overrides how often and how much the outbox is polled.
func (w *NotificationWorker) WithPolling(interval time.Duration, batchSize int) *NotificationWorker {
	if interval > 0 {
		w.pollInterval = interval
	}
	if batchSize > 0 {
		w.batchSize = batchSize
	}
	return w
}

// Enqueue persists the notification and schedules it via redis or the in-memory queue.
func (w *NotificationWorker) Enqueue(ctx context.Context, n *models.Notification) error {
	if n.Channel == "" {
		return errors.New("notification channel is required")
	}
	if n.Body == "" {
		return errors.New("notification body is required")
	}

	n.Status = models.NotificationPending
	if err := w.store.EnqueueNotification(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}

	if w.redis != nil {
		if err := w.redis.LPush(ctx, w.redisQueueKey, n.ID).Err(); err != nil {
			w.logger.Warn().Err(err).Int64("notification_id", n.ID).Msg("Redis push failed, falling back to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- n.ID:
	default:
		w.logger.Warn().Int64("notification_id", n.ID).Msg("Notification queue full, left for polling")
	}
	return nil
}

// Start runs the delivery loop until ctx is done.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Notification worker started")
	defer w.logger.Info().Msg("Notification worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		if id, ok := w.tryLocalQueue(); ok {
			w.processID(ctx, id)
			continue
		}
		if id, ok := w.tryRedis(ctx); ok {
			w.processID(ctx, id)
			continue
		}

		if n := w.ProcessPending(ctx); n > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case id := <-w.queue:
			w.processID(ctx, id)
		case <-time.After(w.pollInterval):
		}
	}
}

// ProcessPending delivers one batch of due outbox rows and returns how many it attempted.
func (w *NotificationWorker) ProcessPending(ctx context.Context) int {
	pending, err := w.store.GetPendingNotifications(ctx, w.batchSize, w.now())
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to fetch pending notifications")
		return 0
	}
	for _, n := range pending {
		w.process(ctx, n)
	}
	return len(pending)
}

func (w *NotificationWorker) tryLocalQueue() (int64, bool) {
	select {
	case id := <-w.queue:
		return id, true
	default:
		return 0, false
	}
}

func (w *NotificationWorker) tryRedis(ctx context.Context) (int64, bool) {
	if w.redis == nil {
		return 0, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Error().Err(err).Msg("Redis BRPOP failed")
		}
		return 0, false
	}
	if len(res) != 2 {
		return 0, false
	}
	id, err := strconv.ParseInt(res[1], 10, 64)
	if err != nil {
		w.logger.Error().Err(err).Str("value", res[1]).Msg("Invalid notification id in queue")
		return 0, false
	}
	return id, true
}

// processID reloads the row so a notification already handled by polling is not sent twice.
func (w *NotificationWorker) processID(ctx context.Context, id int64) {
	n, err := w.store.GetNotification(ctx, id)
	if err != nil {
		w.logger.Error().Err(err).Int64("notification_id", id).Msg("Failed to load notification")
		return
	}
	if n.Status != models.NotificationPending && n.Status != models.NotificationRetry {
		return
	}
	w.process(ctx, n)
}

func (w *NotificationWorker) process(ctx context.Context, n *models.Notification) {
	err := w.sender.Send(ctx, n)
	now := w.now()
	if err == nil {
		n.Status = models.NotificationSent
		n.ProcessedAt = &now
		n.NextRetryAt = nil
		n.LastError = nil
		metrics.IncNotification(n.Channel, models.NotificationSent)
		w.logger.Info().Int64("notification_id", n.ID).Str("channel", n.Channel).Str("kind", n.Kind).Msg("Notification sent")
		w.save(ctx, n)
		return
	}

	msg := err.Error()
	n.LastError = &msg
	n.RetryCount++

	if w.retryPolicy.Exhausted(n.RetryCount) {
		n.Status = models.NotificationFailed
		n.ProcessedAt = &now
		n.NextRetryAt = nil
		metrics.IncNotification(n.Channel, models.NotificationFailed)
		w.logger.Error().Err(err).Int64("notification_id", n.ID).Int("attempts", n.RetryCount).Msg("Notification failed permanently")
		w.save(ctx, n)
		w.pushDeadLetter(ctx, n)
		return
	}

	next := now.Add(w.retryPolicy.NextDelay(n.RetryCount))
	n.Status = models.NotificationRetry
	n.NextRetryAt = &next
	metrics.IncNotification(n.Channel, models.NotificationRetry)
	w.logger.Warn().Err(err).Int64("notification_id", n.ID).Time("next_retry_at", next).Msg("Notification delivery failed, will retry")
	w.save(ctx, n)
}

func (w *NotificationWorker) save(ctx context.Context, n *models.Notification) {
	if err := w.store.UpdateNotificationStatus(ctx, n); err != nil {
		w.logger.Error().Err(err).Int64("notification_id", n.ID).Str("status", n.Status).Msg("Failed to update notification status")
	}
}

func (w *NotificationWorker) pushDeadLetter(ctx context.Context, n *models.Notification) {
	if w.redis == nil {
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, n.ID).Err(); err != nil {
		w.logger.Error().Err(err).Int64("notification_id", n.ID).Msg("Dead letter push failed")
	}
}
