package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/polkiloo/pulperia/internal/domain/model"
)

const defaultPrefetch = 64

// Consumer receives every event published to the exchange on a private queue.
// After the broker closes the delivery stream, the next Envelopes call dials
// again and binds a fresh queue.
type Consumer struct {
	url      string
	exchange string
	logger   *slog.Logger

	mu     sync.Mutex
	ch     channel
	conn   io.Closer
	queue  string
	broken bool
}

// DialConsumer connects to url and binds an exclusive auto-deleted queue to exchange.
func DialConsumer(url, exchange string, logger *slog.Logger) (*Consumer, error) {
	ch, conn, err := dial(url)
	if err != nil {
		return nil, err
	}
	c, err := newConsumer(ch, conn, exchange, logger)
	if err != nil {
		_ = closeAll(ch, conn)
		return nil, err
	}
	c.url = url
	return c, nil
}

func newConsumer(ch channel, conn io.Closer, exchange string, logger *slog.Logger) (*Consumer, error) {
	queue, err := bindQueue(ch, exchange)
	if err != nil {
		return nil, err
	}
	return &Consumer{exchange: exchange, logger: logger, ch: ch, conn: conn, queue: queue}, nil
}

func bindQueue(ch channel, exchange string) (string, error) {
	if err := declareExchange(ch, exchange); err != nil {
		return "", err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return "", fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return "", fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	if err := ch.Qos(defaultPrefetch, 0, false); err != nil {
		return "", fmt.Errorf("set qos: %w", err)
	}
	return q.Name, nil
}

// Queue returns the name the broker assigned to the private queue.
func (c *Consumer) Queue() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue
}

// reopenLocked replaces a dead channel and connection with fresh ones.
func (c *Consumer) reopenLocked() error {
	_ = closeAll(c.ch, c.conn)
	c.ch, c.conn = nil, nil

	ch, conn, err := dial(c.url)
	if err != nil {
		return err
	}
	queue, err := bindQueue(ch, c.exchange)
	if err != nil {
		_ = closeAll(ch, conn)
		return err
	}
	c.ch, c.conn, c.queue, c.broken = ch, conn, queue, false
	c.logger.Info("amqp consumer reconnected", slog.String("queue", queue))
	return nil
}

// Envelopes starts consuming and returns decoded envelopes until ctx is done
// or the broker closes the delivery stream. Malformed messages are dropped.
func (c *Consumer) Envelopes(ctx context.Context) (<-chan model.Envelope, error) {
	c.mu.Lock()
	if c.broken {
		if err := c.reopenLocked(); err != nil {
			c.mu.Unlock()
			return nil, err
		}
	}
	queue := c.queue
	deliveries, err := c.ch.Consume(queue, "", false, true, false, false, nil)
	if err != nil {
		c.broken = true
		c.mu.Unlock()
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	c.mu.Unlock()

	out := make(chan model.Envelope)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					c.logger.Warn("amqp delivery stream closed", slog.String("queue", queue))
					c.markBroken()
					return
				}
				var env model.Envelope
				if err := json.Unmarshal(d.Body, &env); err != nil || env.Room == "" {
					c.logger.Warn("dropping malformed event", slog.String("queue", queue))
					_ = d.Nack(false, false)
					continue
				}
				select {
				case out <- env:
					_ = d.Ack(false)
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return
				}
			}
		}
	}()
	return out, nil
}

func (c *Consumer) markBroken() {
	c.mu.Lock()
	c.broken = true
	c.mu.Unlock()
}

// Close releases the channel and connection. The queue is deleted by the broker.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return closeAll(c.ch, c.conn)
}
