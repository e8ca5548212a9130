package kafka

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/harshits337/e-commerce-data-pipeline/middleware"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// Topics of the event log. Each message value is the JSON-encoded event.
const (
	TopicProductViews = "product-views"
	TopicCartEvents   = "cart-events"
	TopicOrderEvents  = "order-events"
)

const (
	headerSource  = "ecommerce-api"
	headerVersion = "1.0"
)

// ConnState is the producer's connection state, readable via State.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnected
	StateDegraded
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	default:
		return "disconnected"
	}
}

// Producer publishes events to the log. Publish never returns an error to the
// caller: on any failure the event is dropped, logged and counted, and the
// user-facing request proceeds as if it succeeded. The producer is safe to
// use before Connect completes; until a Connect succeeds it is degraded and
// every Publish returns false.
type Producer struct {
	brokers  []string
	clientID string
	logger   *zap.Logger

	mu             sync.Mutex
	sp             sarama.SyncProducer
	state          ConnState
	degradedLogged bool
}

func NewProducer(brokers []string, clientID string, logger *zap.Logger) *Producer {
	return &Producer{
		brokers:  brokers,
		clientID: clientID,
		logger:   logger,
		state:    StateDisconnected,
	}
}

// Connect establishes the broker connection. On failure the producer enters
// the degraded state; callers may retry Connect later.
func (p *Producer) Connect() error {
	config := sarama.NewConfig()
	config.ClientID = p.clientID
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	sp, err := sarama.NewSyncProducer(p.brokers, config)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = StateDegraded
		return err
	}
	p.sp = sp
	p.state = StateConnected
	p.degradedLogged = false
	p.logger.Info("Kafka producer connected", zap.Strings("brokers", p.brokers))
	return nil
}

func (p *Producer) State() ConnState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sp == nil {
		return nil
	}
	err := p.sp.Close()
	p.sp = nil
	p.state = StateDisconnected
	return err
}

// Publish serializes event and sends it to topic keyed by key, so all events
// for one user land in the same partition (per-user ordering, not global).
// An empty key falls back to a generated event id. Returns false on any
// failure; the degraded state is logged once, not per call.
func (p *Producer) Publish(ctx context.Context, topic, key string, event any) bool {
	p.mu.Lock()
	sp := p.sp
	connected := p.state == StateConnected
	if !connected && !p.degradedLogged {
		p.logger.Warn("Kafka producer not connected, dropping events until reconnect")
		p.degradedLogged = true
	}
	p.mu.Unlock()

	if !connected {
		middleware.RecordEventPublished(topic, false)
		return false
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.String("topic", topic), zap.Error(err))
		middleware.RecordEventPublished(topic, false)
		return false
	}

	eventID := uuid.NewString()
	if key == "" {
		key = eventID
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("source"), Value: []byte(headerSource)},
			{Key: []byte("version"), Value: []byte(headerVersion)},
			{Key: []byte("eventId"), Value: []byte(eventID)},
		},
	}

	// Inject trace context into the message headers.
	carrier := saramaHeaderCarrier(msg.Headers)
	otel.GetTextMapPropagator().Inject(ctx, &carrier)
	msg.Headers = []sarama.RecordHeader(carrier)

	partition, offset, err := sp.SendMessage(msg)
	if err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("topic", topic),
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		middleware.RecordEventPublished(topic, false)
		return false
	}

	p.logger.Info("Event published",
		zap.String("topic", topic),
		zap.String("event_id", eventID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	middleware.RecordEventPublished(topic, true)
	return true
}

// saramaHeaderCarrier implements the TextMapCarrier interface over Kafka
// record headers (producer side).
type saramaHeaderCarrier []sarama.RecordHeader

func (c saramaHeaderCarrier) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *saramaHeaderCarrier) Set(key, value string) {
	*c = append(*c, sarama.RecordHeader{
		Key:   []byte(key),
		Value: []byte(value),
	})
}

func (c saramaHeaderCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
