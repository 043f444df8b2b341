// Package notify delivers outbox notifications over email and Telegram.
package notify

import (
	"context"
	"fmt"

	"resort/internal/domain"
	"resort/internal/models"
)

// Router dispatches a notification to the sender registered for its channel.
type Router struct {
	senders map[string]domain.Sender
}

var _ domain.Sender = (*Router)(nil)

func NewRouter() *Router {
	return &Router{senders: make(map[string]domain.Sender)}
}

// Handle registers sender for channel, replacing any previous one.
func (r *Router) Handle(channel string, sender domain.Sender) *Router {
	r.senders[channel] = sender
	return r
}

func (r *Router) Channels() []string {
	channels := make([]string, 0, len(r.senders))
	for _, c := range []string{models.ChannelEmail, models.ChannelTelegram} {
		if _, ok := r.senders[c]; ok {
			channels = append(channels, c)
		}
	}
	return channels
}

func (r *Router) Send(ctx context.Context, n *models.Notification) error {
	sender, ok := r.senders[n.Channel]
	if !ok {
		return fmt.Errorf("no sender for channel %q", n.Channel)
	}
	return sender.Send(ctx, n)
}
