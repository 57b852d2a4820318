// internal/consumer/consumer.go
package consumer

import (
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

type MessageHandlerFunc func(delivery amqp.Delivery)

// Consumer holds control channels and metadata for a running queue consumer
type Consumer struct {
	QueueName   string
	Channel     *amqp.Channel
	StopChan    chan struct{}
	DoneChan    chan struct{}
	Handler     MessageHandlerFunc
	ConsumerTag string
	logger      *zap.Logger
}

// StartConsumer starts a goroutine that hands every delivery of queueName to handler.
// prefetch bounds how many unacked deliveries the broker pushes at once.
func StartConsumer(conn *amqp.Connection, queueName string, prefetch int, handler MessageHandlerFunc, logger *zap.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("queue %s: failed to open channel: %w", queueName, err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("queue %s: failed to set qos: %w", queueName, err)
	}

	consumerTag := fmt.Sprintf("consumer-%s", queueName)
	msgs, err := ch.Consume(
		queueName,
		consumerTag,
		false, // autoAck: false to handle manually
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("queue %s: failed to start consuming: %w", queueName, err)
	}

	c := &Consumer{
		QueueName:   queueName,
		Channel:     ch,
		StopChan:    make(chan struct{}),
		DoneChan:    make(chan struct{}),
		Handler:     handler,
		ConsumerTag: consumerTag,
		logger:      logger,
	}

	go c.consumeLoop(msgs)

	logger.Info("consumer started", zap.String("queue", queueName))
	return c, nil
}

// consumeLoop processes messages until StopChan is closed
func (c *Consumer) consumeLoop(msgs <-chan amqp.Delivery) {
	defer close(c.DoneChan)

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("delivery channel closed", zap.String("queue", c.QueueName))
				return
			}
			c.Handler(msg)

		case <-c.StopChan:
			_ = c.Channel.Cancel(c.ConsumerTag, false)
			return
		}
	}
}

// Stop signals the consumer to stop and waits for cleanup
func (c *Consumer) Stop() {
	close(c.StopChan)
	<-c.DoneChan
	_ = c.Channel.Close()
	c.logger.Info("consumer stopped", zap.String("queue", c.QueueName))
}
