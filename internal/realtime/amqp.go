package realtime

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nikhil/eaven-routing/internal/logger"
)

// amqpChannel is the part of *amqp.Channel the publisher uses
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events to a topic exchange. The routing key is the
// channel name with ':' replaced by '.', so consumers can bind to
// "notifications.client.*".
type AMQPPublisher struct {
	// amqp channels must not be used for concurrent publishes
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	stamp    stamper
}

// DialAMQP connects, opens a channel and declares the topic exchange
func DialAMQP(amqpURL, exchange string, log *logger.Logger) (*AMQPPublisher, error) {
	if u, err := url.Parse(amqpURL); err == nil {
		log.Info("Connecting to rabbitmq", "host", u.Host, "exchange", exchange)
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	p := newAMQPPublisher(ch, exchange)
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch amqpChannel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange, stamp: defaultStamper()}
}

// RoutingKey maps a realtime channel name onto a topic routing key
func RoutingKey(channel string) string {
	return strings.ReplaceAll(channel, ":", ".")
}

func (p *AMQPPublisher) Publish(ctx context.Context, channel, event string, payload any) error {
	env, body, err := p.stamp.encode(channel, event, payload)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(channel), false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Transient,
		MessageId:    env.ID,
		Type:         event,
		Timestamp:    env.Time,
	})
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", channel, err)
	}
	return nil
}

// Close closes the channel and, when dialled, the connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
