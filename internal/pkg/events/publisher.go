package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys publicadas após o commit de cada operação.
const (
	MovementRecorded    = "movement.recorded"
	WithdrawalRequested = "withdrawal.requested"
	WithdrawalConfirmed = "withdrawal.confirmed"
	WithdrawalCancelled = "withdrawal.cancelled"
)

// Envelope é o corpo JSON de todo evento.
type Envelope struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	ActorID    string      `json:"actor_id"`
	Data       interface{} `json:"data"`
}

// Publisher publica eventos de domínio.
type Publisher interface {
	Publish(ctx context.Context, routingKey, actorID string, data interface{}) error
	Close() error
}

// AMQPPublisher publica num exchange topic do RabbitMQ.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPPublisher conecta e declara o exchange (topic, durável).
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("falha ao abrir canal AMQP: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("falha ao declarar exchange %s: %w", exchange, err)
	}

	return &AMQPPublisher{conn: conn, channel: channel, exchange: exchange}, nil
}

// Publish serializa o envelope e publica com entrega persistente.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey, actorID string, data interface{}) error {
	env := Envelope{
		ID:         uuid.New().String(),
		Type:       routingKey,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Data:       data,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	// amqp.Channel não é seguro para publicações concorrentes.
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    env.ID,
			Timestamp:    env.OccurredAt,
			Body:         body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NopPublisher descarta os eventos (AMQP_URL vazio e testes).
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }
func (NopPublisher) Close() error                                              { return nil }
