package pubsub

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	exchangeName = "duelcore.events"
	exchangeType = "topic"

	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 30 * time.Second
	publishTimeout    = 5 * time.Second
)

// RabbitMQ is the distributed Backend for when the session gateway and room
// engine run as more than one process. Same exchange declare-and-reconnect
// shape as a single-purpose job publisher, generalized from "publish one
// domain.Job" to "publish arbitrary bytes on a named channel" (the channel
// becomes the topic routing key).
type RabbitMQ struct {
	url     string
	logger  *zap.Logger
	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool
}

// NewRabbitMQ dials url and declares the events exchange.
func NewRabbitMQ(url string, logger *zap.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{url: url, logger: logger}
	if err := r.connect(); err != nil {
		return nil, err
	}
	go r.watchConnection()
	return r, nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("pubsub: rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("pubsub: rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, exchangeType, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("pubsub: declare exchange: %w", err)
	}

	r.mu.Lock()
	r.conn = conn
	r.channel = ch
	r.mu.Unlock()

	r.logger.Info("pubsub: rabbitmq backend ready", zap.String("exchange", exchangeName))
	return nil
}

func (r *RabbitMQ) watchConnection() {
	for {
		r.mu.RLock()
		if r.closed {
			r.mu.RUnlock()
			return
		}
		conn := r.conn
		r.mu.RUnlock()

		if conn == nil {
			time.Sleep(reconnectDelay)
			continue
		}

		reason, ok := <-conn.NotifyClose(make(chan *amqp.Error))
		if !ok {
			return
		}
		r.logger.Warn("pubsub: rabbitmq connection lost, reconnecting", zap.Error(reason))

		delay := reconnectDelay
		for {
			r.mu.RLock()
			closed := r.closed
			r.mu.RUnlock()
			if closed {
				return
			}

			time.Sleep(delay)
			if err := r.connect(); err != nil {
				r.logger.Warn("pubsub: rabbitmq reconnect failed", zap.Error(err), zap.Duration("retry_in", delay))
				delay *= 2
				if delay > maxReconnectDelay {
					delay = maxReconnectDelay
				}
				continue
			}
			break
		}
	}
}

// Publish sends data to the named channel (used as the topic routing key).
func (r *RabbitMQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	r.mu.RLock()
	ch := r.channel
	r.mu.RUnlock()
	if ch == nil {
		return "", fmt.Errorf("pubsub: channel not available (reconnecting)")
	}

	headers := amqp.Table{}
	for k, v := range attrs {
		headers[k] = v
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := ch.PublishWithContext(publishCtx, exchangeName, channel, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Headers:     headers,
		Body:        data,
	})
	if err != nil {
		return "", fmt.Errorf("pubsub: publish: %w", err)
	}
	return channel, nil
}

// Subscribe declares an exclusive queue bound to channel and runs handler
// for every delivery until ctx is cancelled.
func (r *RabbitMQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	r.mu.RLock()
	ch := r.channel
	r.mu.RUnlock()
	if ch == nil {
		return fmt.Errorf("pubsub: channel not available (reconnecting)")
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("pubsub: declare subscriber queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, channel, exchangeName, false, nil); err != nil {
		return fmt.Errorf("pubsub: bind subscriber queue: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("pubsub: consume: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				attrs := make(map[string]string, len(d.Headers))
				for k, v := range d.Headers {
					if s, ok := v.(string); ok {
						attrs[k] = s
					}
				}
				_ = handler(ctx, Message{ID: d.MessageId, Data: d.Body, Attributes: attrs})
			}
		}
	}()
	return nil
}

// Close tears down the channel and connection.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true

	var firstErr error
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
