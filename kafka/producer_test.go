package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/harshits337/e-commerce-data-pipeline/models"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// Publish before Connect must not crash and must report failure to no one
// but the logs; the degraded warning is emitted once, not per call.
func TestProducer_PublishBeforeConnect(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := NewProducer([]string{"localhost:9092"}, "test-client", zap.New(core))

	event := models.ProductViewEvent{UserID: "u1", ProductID: "p1"}
	for i := 0; i < 3; i++ {
		if ok := p.Publish(context.Background(), TopicProductViews, "u1", event); ok {
			t.Fatalf("Publish #%d = true, want false before connect", i+1)
		}
	}

	warns := logs.FilterMessage("Kafka producer not connected, dropping events until reconnect")
	if warns.Len() != 1 {
		t.Errorf("degraded warning logged %d times, want 1", warns.Len())
	}
	if p.State() != StateDisconnected {
		t.Errorf("State = %v, want disconnected", p.State())
	}
}

func TestProducer_PublishSuccess(t *testing.T) {
	msp := mocks.NewSyncProducer(t, nil)
	msp.ExpectSendMessageAndSucceed()

	p := NewProducer(nil, "test-client", zap.NewNop())
	p.sp = msp
	p.state = StateConnected

	event := models.OrderEvent{OrderID: "o1", UserID: "u1", ProductID: "p1", Quantity: 1}
	if ok := p.Publish(context.Background(), TopicOrderEvents, "u1", event); !ok {
		t.Fatal("Publish = false, want true")
	}

	if err := msp.Close(); err != nil {
		t.Errorf("unmet producer expectations: %v", err)
	}
}

func TestProducer_PublishBrokerError(t *testing.T) {
	msp := mocks.NewSyncProducer(t, nil)
	msp.ExpectSendMessageAndFail(errors.New("broker timeout"))

	p := NewProducer(nil, "test-client", zap.NewNop())
	p.sp = msp
	p.state = StateConnected

	event := models.CartEvent{UserID: "u1", ProductID: "p1", Quantity: 2}
	if ok := p.Publish(context.Background(), TopicCartEvents, "u1", event); ok {
		t.Fatal("Publish = true, want false on broker error")
	}

	if err := msp.Close(); err != nil {
		t.Errorf("unmet producer expectations: %v", err)
	}
}

func TestProducer_MessageShape(t *testing.T) {
	msp := mocks.NewSyncProducer(t, nil)
	msp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicProductViews {
			return errors.New("wrong topic")
		}
		key, err := msg.Key.Encode()
		if err != nil || string(key) != "u1" {
			return errors.New("partition key must be the userId")
		}
		headers := map[string]string{}
		for _, h := range msg.Headers {
			headers[string(h.Key)] = string(h.Value)
		}
		if headers["source"] != "ecommerce-api" || headers["version"] != "1.0" {
			return errors.New("missing source/version headers")
		}
		if headers["eventId"] == "" {
			return errors.New("missing eventId header")
		}
		return nil
	})

	p := NewProducer(nil, "test-client", zap.NewNop())
	p.sp = msp
	p.state = StateConnected

	event := models.ProductViewEvent{UserID: "u1", ProductID: "p1", Timestamp: "2024-01-01T00:00:00Z"}
	if ok := p.Publish(context.Background(), TopicProductViews, "u1", event); !ok {
		t.Fatal("Publish = false, want true")
	}

	if err := msp.Close(); err != nil {
		t.Errorf("message check failed: %v", err)
	}
}
