// internal/messaging/rabbit.go
package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"school-controlplane/internal/metrics"
	"school-controlplane/internal/model"
)

const (
	EventsExchange = "tenant_events"
	SyncQueue      = "tenant_sync_jobs"
	SyncDLQ        = "tenant_sync_jobs_dlq"
)

type RabbitClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	URL     string
	logger  *zap.Logger

	// amqp channels must not be published on concurrently
	pubMu sync.Mutex
}

func NewRabbitClient(url string, logger *zap.Logger) (*RabbitClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to RabbitMQ")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to create channel")
	}

	return &RabbitClient{
		conn:    conn,
		channel: ch,
		URL:     url,
		logger:  logger,
	}, nil
}

func (r *RabbitClient) GetConnection() *amqp.Connection {
	return r.conn
}

// DeclareTopology creates the event exchange and the durable sync job queue with its DLQ.
func (r *RabbitClient) DeclareTopology() error {
	if err := r.channel.ExchangeDeclare(EventsExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "declare events exchange")
	}

	if _, err := r.channel.QueueDeclare(SyncDLQ, true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "declare DLQ")
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": SyncDLQ,
	}
	if _, err := r.channel.QueueDeclare(SyncQueue, true, false, false, false, args); err != nil {
		return errors.Wrap(err, "declare sync queue")
	}

	r.logger.Info("rabbitmq topology declared",
		zap.String("exchange", EventsExchange),
		zap.String("queue", SyncQueue),
	)
	return nil
}

// PublishEvent sends a lifecycle event to the topic exchange, routed by its type.
func (r *RabbitClient) PublishEvent(_ context.Context, ev model.Event) error {
	return r.publish(EventsExchange, string(ev.Type), ev)
}

// PublishSyncJob queues a usage sync for one tenant.
func (r *RabbitClient) PublishSyncJob(_ context.Context, job model.SyncJob) error {
	return r.publish("", SyncQueue, job)
}

func (r *RabbitClient) publish(exchange, key string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode message")
	}

	r.pubMu.Lock()
	defer r.pubMu.Unlock()
	err = r.channel.Publish(exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	return errors.Wrapf(err, "failed to publish to %s/%s", exchange, key)
}

// Close cleans up connection and channel
func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}

func (r *RabbitClient) UpdateQueueDepth() {
	r.pubMu.Lock()
	q, err := r.channel.QueueInspect(SyncQueue)
	r.pubMu.Unlock()
	if err != nil {
		r.logger.Warn("failed to inspect sync queue", zap.Error(err))
		return
	}
	metrics.SyncQueueDepth.Set(float64(q.Messages))
}

// NopPublisher drops events. It stands in when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(context.Context, model.Event) error { return nil }
