package config

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// ErrDiscard tells the consumer to drop a message instead of requeueing it
var ErrDiscard = errors.New("discard message")

type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func NewConsumer(queueName string) (*Consumer, error) {
	ch, err := RabbitMQ.Channel()
	if err != nil {
		return nil, err
	}

	q, err := declareQueue(ch, queueName)
	if err != nil {
		return nil, err
	}

	if err := ch.Qos(10, 0, false); err != nil {
		return nil, err
	}

	return &Consumer{
		conn:    RabbitMQ,
		channel: ch,
		queue:   q.Name,
	}, nil
}

// Consume delivers messages to handler until ctx is done or the channel closes.
// A nil error acks, ErrDiscard rejects without requeue, anything else requeues.
func (c *Consumer) Consume(ctx context.Context, handler func([]byte) error) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return err
	}

	log.Infof("Consumer is running on queue: %s", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("consumer channel closed")
			}
			err := handler(msg.Body)
			switch {
			case err == nil:
				msg.Ack(false)
			case errors.Is(err, ErrDiscard):
				log.Warnf("Discarding message on %s: %v", c.queue, err)
				msg.Reject(false)
			default:
				log.Errorf("Handle msg failed: %v", err)
				msg.Nack(false, true)
			}
		}
	}
}

func (c *Consumer) Close() error {
	if err := c.channel.Close(); err != nil {
		return err
	}
	return nil
}
