package session

import (
	"context"
	"time"

	"github.com/Zkeai/DDPay-web/common/logging"
	"github.com/Zkeai/DDPay-web/common/messaging"
)

// EventPublisher is a Notifier that publishes session events to a broker.
// Publish failures are logged and dropped.
type EventPublisher struct {
	publisher messaging.Publisher
	prefix    string
	logger    *logging.Logger
	now       func() time.Time
}

// NewEventPublisher returns a Notifier publishing under prefix.
func NewEventPublisher(publisher messaging.Publisher, prefix string, logger *logging.Logger) *EventPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &EventPublisher{publisher: publisher, prefix: prefix, logger: logger, now: time.Now}
}

func (p *EventPublisher) Notify(ctx context.Context, ev Event) {
	msg := messaging.SessionEvent{
		Type:       ev.Type,
		UserID:     ev.UserID,
		ExpiresAt:  ev.ExpiresAt,
		OccurredAt: p.now().UTC(),
	}
	subject := messaging.SessionSubject(p.prefix, ev.Type)
	if err := p.publisher.PublishJSON(ctx, subject, msg); err != nil {
		p.logger.WarnContext(ctx, "failed to publish session event",
			"subject", subject,
			logging.Error(err),
		)
	}
}
