package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	rabbit "github.com/rabbitmq/amqp091-go"

	"github.com/polkiloo/pulperia/internal/domain/model"
)

// ErrNacked is returned when the broker refuses a published event.
var ErrNacked = errors.New("publish nacked by broker")

// Publisher emits events to every server instance through a fanout exchange.
type Publisher struct {
	ch       channel
	conn     io.Closer
	exchange string
	logger   *slog.Logger

	// mu serializes publishes so each confirmation matches its message.
	mu   sync.Mutex
	acks <-chan rabbit.Confirmation
}

// DialPublisher connects to url and declares exchange with publisher confirms enabled.
func DialPublisher(url, exchange string, logger *slog.Logger) (*Publisher, error) {
	ch, conn, err := dial(url)
	if err != nil {
		return nil, err
	}
	p, err := newPublisher(ch, conn, exchange, logger)
	if err != nil {
		_ = closeAll(ch, conn)
		return nil, err
	}
	return p, nil
}

func newPublisher(ch channel, conn io.Closer, exchange string, logger *slog.Logger) (*Publisher, error) {
	if err := declareExchange(ch, exchange); err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	acks := ch.NotifyPublish(make(chan rabbit.Confirmation, 1))
	return &Publisher{ch: ch, conn: conn, exchange: exchange, logger: logger, acks: acks}, nil
}

// Emit publishes payload for room and waits for the broker to confirm it.
func (p *Publisher) Emit(ctx context.Context, room string, payload model.Payload) error {
	env, err := model.NewEnvelope(room, payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, "", false, false, rabbit.Publishing{
		DeliveryMode: rabbit.Transient,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Headers: rabbit.Table{
			"event": string(env.Name),
			"room":  room,
		},
		Body: body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", env.Name, err)
	}

	select {
	case conf, ok := <-p.acks:
		if !ok {
			return fmt.Errorf("publish %s: confirmation channel closed", env.Name)
		}
		if !conf.Ack {
			p.logger.Warn("broker rejected event", slog.String("event", string(env.Name)), slog.String("room", room))
			return ErrNacked
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	return closeAll(p.ch, p.conn)
}
