package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/harshits337/e-commerce-data-pipeline/catalog"
	"github.com/harshits337/e-commerce-data-pipeline/models"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type fakeCatalog struct {
	products map[string]models.Product
}

func (f *fakeCatalog) ProductByID(ctx context.Context, id string) (models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return models.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

type fakeStore struct {
	rows      []models.FactRow
	insertErr error
}

func (f *fakeStore) InsertFact(ctx context.Context, row models.FactRow) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.rows = append(f.rows, row)
	return nil
}

func setupConsumerTest(t *testing.T, products map[string]models.Product) (*Consumer, *fakeStore) {
	store := &fakeStore{}
	c := &Consumer{
		catalog: &fakeCatalog{products: products},
		store:   store,
		logger:  zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)),
	}
	return c, store
}

func TestConsumer_OrderEvent_EndToEnd(t *testing.T) {
	c, store := setupConsumerTest(t, map[string]models.Product{
		"p1": {ID: "p1", Name: "Headphones", Price: 100, Category: "Electronics", Company: "Sony"},
	})

	payload := `{"orderId":"o1","userId":"u1","productId":"p1","quantity":2,"paymentMethod":"UPI","shippingCity":"Pune","source":"APP","timestamp":"2024-01-01T00:00:00Z"}`
	c.handleMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: TopicOrderEvents,
		Value: []byte(payload),
	})

	if len(store.rows) != 1 {
		t.Fatalf("got %d fact rows, want 1", len(store.rows))
	}
	row := store.rows[0]
	if row.TotalAmount != 200 {
		t.Errorf("TotalAmount = %v, want 200", row.TotalAmount)
	}
	if row.EventType != models.EventTypeOrder {
		t.Errorf("EventType = %d, want %d", row.EventType, models.EventTypeOrder)
	}
	if row.Category != "Electronics" {
		t.Errorf("Category = %q, want Electronics", row.Category)
	}
	if row.OrderID != "o1" || row.City != "Pune" || row.PaymentMethod != "UPI" || row.Source != "APP" {
		t.Errorf("unexpected row: %+v", row)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !row.EventTime.Equal(want) {
		t.Errorf("EventTime = %v, want %v", row.EventTime, want)
	}
}

func TestConsumer_CartEvent(t *testing.T) {
	c, store := setupConsumerTest(t, map[string]models.Product{
		"p2": {ID: "p2", Price: 50},
	})

	payload := `{"userId":"u1","productId":"p2","quantity":3,"timestamp":"2024-01-01T08:30:00Z"}`
	c.handleMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: TopicCartEvents,
		Value: []byte(payload),
	})

	if len(store.rows) != 1 {
		t.Fatalf("got %d fact rows, want 1", len(store.rows))
	}
	row := store.rows[0]
	if row.EventType != models.EventTypeCart || row.Quantity != 3 || row.TotalAmount != 150 {
		t.Errorf("unexpected cart row: %+v", row)
	}
	if row.OrderID != "" || row.PaymentMethod != "" || row.City != "" {
		t.Errorf("cart row carries order-only fields: %+v", row)
	}
}

// A view without a timestamp is stamped with the broker message timestamp.
func TestConsumer_ProductView_DefaultTimestamp(t *testing.T) {
	c, store := setupConsumerTest(t, map[string]models.Product{
		"p1": {ID: "p1", Price: 100},
	})

	publishTime := time.Date(2024, 2, 2, 12, 0, 0, 0, time.UTC)
	c.handleMessage(context.Background(), &sarama.ConsumerMessage{
		Topic:     TopicProductViews,
		Value:     []byte(`{"userId":"u1","productId":"p1"}`),
		Timestamp: publishTime,
	})

	if len(store.rows) != 1 {
		t.Fatalf("got %d fact rows, want 1", len(store.rows))
	}
	row := store.rows[0]
	if row.EventType != models.EventTypeProductView || row.Quantity != 1 || row.TotalAmount != 100 {
		t.Errorf("unexpected view row: %+v", row)
	}
	if !row.EventTime.Equal(publishTime) {
		t.Errorf("EventTime = %v, want publish time %v", row.EventTime, publishTime)
	}
}

// Malformed payloads are logged and skipped; the consumer keeps running and
// nothing reaches the store.
func TestConsumer_MalformedPayload_Skipped(t *testing.T) {
	c, store := setupConsumerTest(t, nil)

	c.handleMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: TopicOrderEvents,
		Value: []byte(`{not json`),
	})

	if len(store.rows) != 0 {
		t.Errorf("got %d fact rows, want 0", len(store.rows))
	}
}

// A product missing from the catalog is fatal to that message only: logged,
// skipped, no insert, no panic.
func TestConsumer_MissingProduct_Skipped(t *testing.T) {
	c, store := setupConsumerTest(t, map[string]models.Product{})

	payload := `{"orderId":"o2","userId":"u1","productId":"ghost","quantity":1,"paymentMethod":"COD","shippingCity":"Pune","source":"WEB","timestamp":"2024-01-01T00:00:00Z"}`
	c.handleMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: TopicOrderEvents,
		Value: []byte(payload),
	})

	if len(store.rows) != 0 {
		t.Errorf("got %d fact rows, want 0", len(store.rows))
	}
}

// Order rows fall back to the catalog defaults when the product record has
// blank category/company and the order has no shipping city.
func TestConsumer_OrderEvent_Defaults(t *testing.T) {
	c, store := setupConsumerTest(t, map[string]models.Product{
		"p3": {ID: "p3", Price: 10},
	})

	payload := `{"orderId":"o3","userId":"u9","productId":"p3","quantity":1,"paymentMethod":"COD","source":"WEB","timestamp":"2024-01-01T00:00:00Z"}`
	c.handleMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: TopicOrderEvents,
		Value: []byte(payload),
	})

	if len(store.rows) != 1 {
		t.Fatalf("got %d fact rows, want 1", len(store.rows))
	}
	row := store.rows[0]
	if row.City != "Gwalior" || row.Category != "Electronics" || row.Company != "JBL" {
		t.Errorf("defaults not applied: %+v", row)
	}
}

func TestConsumer_InsertFailure_Skipped(t *testing.T) {
	c, store := setupConsumerTest(t, map[string]models.Product{
		"p1": {ID: "p1", Price: 100},
	})
	store.insertErr = context.DeadlineExceeded

	c.handleMessage(context.Background(), &sarama.ConsumerMessage{
		Topic: TopicProductViews,
		Value: []byte(`{"userId":"u1","productId":"p1","timestamp":"2024-01-01T00:00:00Z"}`),
	})

	if len(store.rows) != 0 {
		t.Errorf("got %d fact rows, want 0", len(store.rows))
	}
}
