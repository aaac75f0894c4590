package amqp

import (
	"context"
	"fmt"
	"io"

	rabbit "github.com/rabbitmq/amqp091-go"
)

// channel is the part of *amqp091.Channel the adapter relies on.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args rabbit.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args rabbit.Table) (rabbit.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args rabbit.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args rabbit.Table) (<-chan rabbit.Delivery, error)
	Confirm(noWait bool) error
	NotifyPublish(confirm chan rabbit.Confirmation) chan rabbit.Confirmation
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg rabbit.Publishing) error
	Close() error
}

var _ channel = (*rabbit.Channel)(nil)

// dial opens a connection and a channel on it. Tests replace it.
var dial = func(url string) (channel, io.Closer, error) {
	conn, err := rabbit.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open amqp channel: %w", err)
	}
	return ch, conn, nil
}

func declareExchange(ch channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, rabbit.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}

func closeAll(ch channel, conn io.Closer) error {
	var err error
	if ch != nil {
		err = ch.Close()
	}
	if conn != nil {
		if cerr := conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
