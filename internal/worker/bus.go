package worker

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"financas/internal/amqp"
	applog "financas/internal/log"
	"financas/internal/store"
	"financas/internal/store/notify"
)

// ChangeClient is the part of the AMQP client the bus uses.
type ChangeClient interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
	ConsumeChanges(ctx context.Context, handler func(*amqp.ChangeMessage) error) error
}

// PathRefresher delivers a fresh copy of one collection to its subscribers.
type PathRefresher interface {
	Refresh(ctx context.Context, path store.Path) error
}

// ChangeBus announces local writes to other processes and turns their
// announcements into refreshes. Messages carrying this process's origin
// are ignored.
type ChangeBus struct {
	client ChangeClient
	origin string
	logger *applog.Logger
}

var _ notify.Publisher = (*ChangeBus)(nil)

// NewChangeBus creates a bus with a fresh origin id.
func NewChangeBus(client ChangeClient, logger *applog.Logger) *ChangeBus {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &ChangeBus{
		client: client,
		origin: uuid.NewString(),
		logger: logger.WithComponent(applog.ComponentAMQP),
	}
}

func (b *ChangeBus) Origin() string { return b.origin }

// Publish implements notify.Publisher.
func (b *ChangeBus) Publish(ctx context.Context, c notify.Change) error {
	return b.client.PublishChange(ctx, amqp.NewChangeMessage(b.origin, c.Path.String(), string(c.Op), c.ID))
}

// Run consumes changes until ctx is done, refreshing target for every
// change made elsewhere.
func (b *ChangeBus) Run(ctx context.Context, target PathRefresher) error {
	b.logger.InfoContext(ctx, "Consuming change messages", "origin", b.origin)
	err := b.client.ConsumeChanges(ctx, func(msg *amqp.ChangeMessage) error {
		return b.handle(ctx, target, msg)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (b *ChangeBus) handle(ctx context.Context, target PathRefresher, msg *amqp.ChangeMessage) error {
	if msg.Origin == b.origin {
		return nil
	}
	path := store.Path(msg.Path)
	if err := path.Validate(); err != nil {
		b.logger.WarnContext(ctx, "Dropping change with invalid path",
			applog.FieldCollection, msg.Path, applog.FieldError, err.Error())
		return nil
	}
	if err := target.Refresh(ctx, path); err != nil {
		b.logger.WarnContext(ctx, "Refresh after remote change failed",
			applog.FieldCollection, msg.Path,
			applog.FieldOperation, msg.Op,
			applog.FieldError, err.Error())
		return err
	}
	b.logger.DebugContext(ctx, "Applied remote change",
		applog.FieldCollection, msg.Path, applog.FieldOperation, msg.Op)
	return nil
}
