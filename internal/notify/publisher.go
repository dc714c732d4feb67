package notify

import (
	"context"
	"encoding/json"

	"ppe-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes notifications as JSON on a pub/sub channel for live dashboards.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

type message struct {
	ID          uint                    `json:"id"`
	RecipientID uint                    `json:"recipient_id"`
	Type        models.NotificationType `json:"type"`
	Message     string                  `json:"message"`
	SentAt      string                  `json:"sent_at"`
}

func (p *RedisPublisher) Publish(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(message{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Type:        n.Type,
		Message:     n.Message,
		SentAt:      n.SentAt.Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}
