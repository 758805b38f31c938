// Package notify publishes new-message notifications to RabbitMQ for the UI
// insertion feed and per-customer subscription fan-out.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"pageinbox/internal/models"
)

// Publisher sends message notifications to durable queues. When no broker URL
// is configured the publisher is disabled and every publish is a no-op.
type Publisher struct {
	conn        *amqp091.Connection
	channel     *amqp091.Channel
	queuePrefix string
	enabled     bool
}

// envelope is the JSON payload pushed to subscribers.
type envelope struct {
	EventID        string                      `json:"eventId"`
	Event          string                      `json:"event"`
	CustomerID     string                      `json:"customerId,omitempty"`
	ConversationID string                      `json:"conversationId"`
	Message        *models.ConversationMessage `json:"message"`
	PublishedAt    time.Time                   `json:"publishedAt"`
}

// NewPublisher connects to the broker at url. An empty url disables
// publishing rather than failing startup.
func NewPublisher(url, queuePrefix string) (*Publisher, error) {
	if queuePrefix == "" {
		queuePrefix = "pageinbox"
	}

	if url == "" {
		log.Info().Msg("AMQP_URL is not set. Notification publishing disabled.")
		return &Publisher{queuePrefix: queuePrefix}, nil
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not open RabbitMQ channel: %w", err)
	}

	log.Info().Str("prefix", queuePrefix).Msg("RabbitMQ connection established")

	return &Publisher{
		conn:        conn,
		channel:     channel,
		queuePrefix: queuePrefix,
		enabled:     true,
	}, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	return p.conn.Close()
}

func (p *Publisher) publish(ctx context.Context, queueName string, body []byte) error {
	// Declare queue (idempotent).
	_, err := p.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("could not declare queue %s: %w", queueName, err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		"",        // exchange (default)
		queueName, // routing key = queue
		false,     // mandatory
		false,     // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("could not publish to queue %s: %w", queueName, err)
	}

	log.Debug().Str("queue", queueName).Msg("Published notification")
	return nil
}

// PublishNewMessage notifies the UI insertion feed about an ingested message.
func (p *Publisher) PublishNewMessage(ctx context.Context, msg *models.ConversationMessage) error {
	if !p.enabled {
		return nil
	}

	body, err := json.Marshal(envelope{
		EventID:        uuid.NewString(),
		Event:          "conversation.message.inserted",
		ConversationID: msg.ConversationID,
		Message:        msg,
		PublishedAt:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message notification: %w", err)
	}

	return p.publish(ctx, p.queuePrefix+"_message_inserted", body)
}

// PublishToCustomerSubscription notifies the subscription fan-out keyed by
// customer id.
func (p *Publisher) PublishToCustomerSubscription(ctx context.Context, msg *models.ConversationMessage, customerID string) error {
	if !p.enabled {
		return nil
	}

	body, err := json.Marshal(envelope{
		EventID:        uuid.NewString(),
		Event:          "conversation.customer.message",
		CustomerID:     customerID,
		ConversationID: msg.ConversationID,
		Message:        msg,
		PublishedAt:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal subscription notification: %w", err)
	}

	return p.publish(ctx, p.queuePrefix+"_customer_subscription", body)
}
