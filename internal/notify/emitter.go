package notify

import (
	"context"
	"fmt"
	"time"

	"ppe-backend/internal/metrics"
	"ppe-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Publisher pushes written notifications to live listeners.
type Publisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

type Emitter struct {
	db        *gorm.DB
	publisher Publisher
	threshold int
	now       func() time.Time
}

// NewEmitter builds an emitter. publisher may be nil.
func NewEmitter(db *gorm.DB, threshold int, publisher Publisher) *Emitter {
	return &Emitter{db: db, publisher: publisher, threshold: threshold, now: time.Now}
}

func (e *Emitter) Threshold() int { return e.threshold }

// Recipients returns every user holding one of roles, ordered by id.
func (e *Emitter) Recipients(ctx context.Context, roles ...models.Role) ([]models.User, error) {
	var users []models.User
	err := e.db.WithContext(ctx).Where("role IN ?", roles).Order("id ASC").Find(&users).Error
	return users, err
}

// Send writes each notification in turn, filling in their ids. There is no enclosing
// transaction: on error the notifications already written stay, and the count of written rows
// is returned with the error.
func (e *Emitter) Send(ctx context.Context, intents []models.Notification) (int, error) {
	for i := range intents {
		n := &intents[i]
		if err := e.db.WithContext(ctx).Create(n).Error; err != nil {
			metrics.NotificationFailures.Inc()
			return i, fmt.Errorf("write notification for user %d: %w", n.RecipientID, err)
		}
		metrics.Notifications.WithLabelValues(string(n.Type)).Inc()

		if e.publisher != nil {
			if err := e.publisher.Publish(ctx, *n); err != nil {
				zap.L().Warn("notification not published", zap.Uint("notification_id", n.ID), zap.Error(err))
			}
		}
	}
	return len(intents), nil
}

// AttributionRecorded fans the event out to administrators and warehouse clerks.
func (e *Emitter) AttributionRecorded(ctx context.Context, ev AttributionEvent) (int, error) {
	recipients, err := e.Recipients(ctx, models.NotifiedRoles...)
	if err != nil {
		return 0, fmt.Errorf("load recipients: %w", err)
	}
	return e.Send(ctx, Plan(recipients, ev, e.threshold, e.now()))
}
