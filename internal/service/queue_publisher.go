// Package service publishes domain events to RabbitMQ. Broker failures are
// logged and returned so callers can choose to ignore them without
// interrupting the main request flow.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/lunchroom/lunchroom/internal/model"
	"github.com/lunchroom/lunchroom/internal/queue"
)

// Publisher opens a short-lived connection per publish. Volume here is one
// message per placed order or reset request, so connection reuse is not
// worth the reconnect bookkeeping.
type Publisher struct {
	log *zap.Logger
}

func NewPublisher(log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{log: log}
}

// PublishOrderPlaced sends an OrderPlacedEvent to the order.placed queue.
// Messages are persistent so they survive broker restarts.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, ev queue.OrderPlacedEvent) error {
	return p.publish(ctx, queue.OrderPlacedQueue, ev)
}

// PasswordResetRequested sends a PasswordResetEvent to auth.password_reset.
// The token is the signed reset JWT; only the mail worker ever sees it.
func (p *Publisher) PasswordResetRequested(ctx context.Context, user model.PublicUser, token string, expiresAt time.Time) error {
	ev := queue.PasswordResetEvent{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}
	return p.publish(ctx, queue.PasswordResetQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queueName string, payload interface{}) error {
	conn, err := amqp.Dial(queue.BrokerURL())
	if err != nil {
		p.log.Warn("broker dial failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("channel open failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		p.log.Warn("queue declare failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("marshal event failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.log.Warn("publish failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}
	return nil
}
