// Package amqp carries bill sync traffic between the app process and the
// sync worker over RabbitMQ. One direct exchange, one queue per message
// kind, durable everything.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	syncQueue    string
	deleteQueue  string
}

func NewClient(url, exchangeName, syncQueue, deleteQueue string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		syncQueue:    syncQueue,
		deleteQueue:  deleteQueue,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, queue := range []string{c.syncQueue, c.deleteQueue} {
		_, err = c.channel.QueueDeclare(
			queue,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}

		// Routing key matches the queue name on a direct exchange.
		if err := c.channel.QueueBind(queue, queue, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}

	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// PublishBillSync publishes a sync request for one bill.
func (c *Client) PublishBillSync(ctx context.Context, id string) error {
	body, err := NewBillSyncMessage(id).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal sync message: %w", err)
	}
	if err := c.publish(ctx, c.syncQueue, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published bill sync message", "id", id, "queue", c.syncQueue)
	return nil
}

// PublishBillDelete publishes a delete request for one bill.
func (c *Client) PublishBillDelete(ctx context.Context, id string) error {
	body, err := NewBillDeleteMessage(id).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal delete message: %w", err)
	}
	if err := c.publish(ctx, c.deleteQueue, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published bill delete message", "id", id, "queue", c.deleteQueue)
	return nil
}

// ConsumeBillSync consumes sync messages until ctx is done. Handler errors
// nack with requeue; malformed messages are dropped.
func (c *Client) ConsumeBillSync(ctx context.Context, handler func(*BillSyncMessage) error) error {
	return c.consume(ctx, c.syncQueue, func(body []byte) error {
		msg, err := BillSyncMessageFromJSON(body)
		if err != nil {
			return unmarshalError(err)
		}
		return handler(msg)
	})
}

// ConsumeBillDelete consumes delete messages until ctx is done.
func (c *Client) ConsumeBillDelete(ctx context.Context, handler func(*BillDeleteMessage) error) error {
	return c.consume(ctx, c.deleteQueue, func(body []byte) error {
		msg, err := BillDeleteMessageFromJSON(body)
		if err != nil {
			return unmarshalError(err)
		}
		return handler(msg)
	})
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }

// unmarshalError marks a failure that redelivery can never fix.
func unmarshalError(err error) error {
	return &permanentError{err: err}
}

func (c *Client) consume(ctx context.Context, queue string, handle func([]byte) error) error {
	msgs, err := c.channel.Consume(
		queue,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming %s: %w", queue, err)
	}

	slog.InfoContext(ctx, "Started consuming", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "queue", queue, "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed for %s", queue)
			}

			if err := handle(delivery.Body); err != nil {
				if _, permanent := err.(*permanentError); permanent {
					slog.ErrorContext(ctx, "Dropping malformed message", "queue", queue, "error", err)
					delivery.Nack(false, false)
					continue
				}
				slog.ErrorContext(ctx, "Failed to handle message", "queue", queue, "error", err)
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// exponentialBackoff returns the delay before reconnect attempt n, capped
// at 30 seconds.
func exponentialBackoff(attempt int) time.Duration {
	d := time.Second << attempt
	if d > 30*time.Second || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// isConnectionError reports whether an error looks like a dropped broker
// connection worth a reconnect loop.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection") || strings.Contains(msg, "eof") ||
		strings.Contains(msg, "broken pipe")
}
