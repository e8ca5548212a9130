package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harshits337/e-commerce-data-pipeline/middleware"
	"github.com/harshits337/e-commerce-data-pipeline/models"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Catalog resolves product records for enrichment at consumption time.
type Catalog interface {
	ProductByID(ctx context.Context, id string) (models.Product, error)
}

// FactWriter persists one denormalized fact row per consumed event.
type FactWriter interface {
	InsertFact(ctx context.Context, row models.FactRow) error
}

// Consumer subscribes to all three event topics under one consumer group and
// writes one fact row per delivered message. Delivery is at-least-once:
// offsets are marked after handling, so a crash before commit redelivers and
// the store receives duplicate rows. No deduplication is performed.
//
// Malformed payloads and failed enrichments or inserts are logged and
// skipped; a single bad message never stops the consumer.
type Consumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	catalog Catalog
	store   FactWriter
	logger  *zap.Logger
}

func NewConsumer(brokers []string, groupID string, catalog Catalog, store FactWriter, logger *zap.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	logger.Info("Kafka consumer group initialized", zap.String("group", groupID))
	return &Consumer{
		group:   group,
		topics:  []string{TopicProductViews, TopicCartEvents, TopicOrderEvents},
		catalog: catalog,
		store:   store,
		logger:  logger,
	}, nil
}

// Run blocks consuming messages until ctx is cancelled. Consume returns on
// every rebalance, hence the loop.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Kafka consumer started", zap.Strings("topics", c.topics))

	go func() {
		for err := range c.group.Errors() {
			c.logger.Error("Kafka consumer error", zap.Error(err))
		}
	}()

	for {
		if err := c.group.Consume(ctx, c.topics, &groupHandler{c}); err != nil {
			c.logger.Error("Consumer group session ended", zap.Error(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	c *Consumer
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.c.handleMessage(session.Context(), message)
		// Marked regardless of outcome: failed messages are skipped, not
		// retried or dead-lettered.
		session.MarkMessage(message, "")
	}
	return nil
}

func (c *Consumer) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) {
	carrier := consumerHeaderCarrier(message.Headers)
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	ctx, span := otel.Tracer("clickstream-consumer").Start(ctx, "ProcessEvent")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.destination", message.Topic),
		attribute.Int64("messaging.kafka.offset", message.Offset),
	)

	row, err := c.buildFactRow(ctx, message)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("Skipping message",
			zap.String("topic", message.Topic),
			zap.Int32("partition", message.Partition),
			zap.Int64("offset", message.Offset),
			zap.ByteString("payload", message.Value),
			zap.Error(err),
		)
		middleware.RecordEventConsumed(message.Topic, "skipped")
		return
	}

	if err := c.store.InsertFact(ctx, row); err != nil {
		span.RecordError(err)
		c.logger.Error("Failed to insert fact row",
			zap.String("topic", message.Topic),
			zap.String("order_id", row.OrderID),
			zap.Error(err),
		)
		middleware.RecordEventConsumed(message.Topic, "insert_failed")
		return
	}

	middleware.RecordEventConsumed(message.Topic, "processed")
	middleware.RecordFactInserted(row.EventType)
	c.logger.Info("Fact row inserted",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("topic", message.Topic),
		zap.Uint8("event_type", row.EventType),
		zap.String("product_id", row.ProductID),
	)
}

func (c *Consumer) buildFactRow(ctx context.Context, message *sarama.ConsumerMessage) (models.FactRow, error) {
	switch message.Topic {
	case TopicProductViews:
		var event models.ProductViewEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			return models.FactRow{}, fmt.Errorf("failed to decode product view: %w", err)
		}
		product, err := c.catalog.ProductByID(ctx, event.ProductID)
		if err != nil {
			return models.FactRow{}, fmt.Errorf("catalog lookup failed for product %q: %w", event.ProductID, err)
		}
		return models.FactRow{
			ProductID:   event.ProductID,
			UserID:      event.UserID,
			EventTime:   eventTime(event.Timestamp, message.Timestamp),
			Quantity:    1,
			Price:       product.Price,
			TotalAmount: product.Price,
			EventType:   models.EventTypeProductView,
		}, nil

	case TopicCartEvents:
		var event models.CartEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			return models.FactRow{}, fmt.Errorf("failed to decode cart event: %w", err)
		}
		product, err := c.catalog.ProductByID(ctx, event.ProductID)
		if err != nil {
			return models.FactRow{}, fmt.Errorf("catalog lookup failed for product %q: %w", event.ProductID, err)
		}
		return models.FactRow{
			ProductID:   event.ProductID,
			UserID:      event.UserID,
			EventTime:   eventTime(event.Timestamp, message.Timestamp),
			Quantity:    event.Quantity,
			Price:       product.Price,
			TotalAmount: product.Price * float64(event.Quantity),
			EventType:   models.EventTypeCart,
		}, nil

	case TopicOrderEvents:
		var event models.OrderEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			return models.FactRow{}, fmt.Errorf("failed to decode order event: %w", err)
		}
		product, err := c.catalog.ProductByID(ctx, event.ProductID)
		if err != nil {
			return models.FactRow{}, fmt.Errorf("catalog lookup failed for product %q: %w", event.ProductID, err)
		}
		return models.FactRow{
			OrderID:       event.OrderID,
			ProductID:     event.ProductID,
			UserID:        event.UserID,
			EventTime:     eventTime(event.Timestamp, message.Timestamp),
			Quantity:      event.Quantity,
			Price:         product.Price,
			TotalAmount:   product.Price * float64(event.Quantity),
			PaymentMethod: event.PaymentMethod,
			City:          defaultString(event.ShippingCity, "Gwalior"),
			Source:        event.Source,
			EventType:     models.EventTypeOrder,
			Category:      defaultString(product.Category, "Electronics"),
			Company:       defaultString(product.Company, "JBL"),
		}, nil

	default:
		return models.FactRow{}, fmt.Errorf("unexpected topic %q", message.Topic)
	}
}

// eventTime parses the caller-supplied timestamp, falling back to the
// broker's message timestamp (the publish time) when absent or malformed.
func eventTime(ts string, fallback time.Time) time.Time {
	if ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return t.UTC()
		}
	}
	return fallback.UTC()
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// consumerHeaderCarrier implements the TextMapCarrier interface over Kafka
// record headers (consumer side).
type consumerHeaderCarrier []*sarama.RecordHeader

func (c consumerHeaderCarrier) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c consumerHeaderCarrier) Set(key, value string) {}

func (c consumerHeaderCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
