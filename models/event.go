package models

import "time"

// Event type codes stored in the event_type column of orders_fact.
const (
	EventTypeProductView uint8 = 1
	EventTypeCart        uint8 = 2
	EventTypeOrder       uint8 = 3
)

// ProductViewEvent is published to the product-views topic.
type ProductViewEvent struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Timestamp string `json:"timestamp,omitempty"`
}

// CartEvent is published to the cart-events topic.
type CartEvent struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Timestamp string `json:"timestamp,omitempty"`
}

// OrderEvent is published to the order-events topic. OrderID is supplied by
// the caller and is the only natural idempotency key in the pipeline; view
// and cart events have none.
type OrderEvent struct {
	OrderID       string `json:"orderId"`
	UserID        string `json:"userId"`
	ProductID     string `json:"productId"`
	Quantity      int    `json:"quantity"`
	PaymentMethod string `json:"paymentMethod"`
	ShippingCity  string `json:"shippingCity"`
	Source        string `json:"source"`
	Timestamp     string `json:"timestamp,omitempty"`
}

type ViewProductRequest struct {
	ProductID string `json:"productId" binding:"required"`
	UserID    string `json:"userId" binding:"required"`
	Timestamp string `json:"timestamp"`
}

type AddCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	UserID    string `json:"userId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Timestamp string `json:"timestamp"`
}

type PlaceOrderRequest struct {
	OrderID       string `json:"orderId" binding:"required"`
	ProductID     string `json:"productId" binding:"required"`
	UserID        string `json:"userId" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
	PaymentMethod string `json:"paymentMethod"`
	ShippingCity  string `json:"shippingCity"`
	Source        string `json:"source"`
	Timestamp     string `json:"timestamp"`
}

// FactRow is one denormalized analytics record, written once per consumed
// event and never updated. View and cart rows carry empty order_id,
// payment_method and city. Redelivered messages produce duplicate rows;
// downstream consumers needing exactly-once counts must dedupe on order_id.
type FactRow struct {
	OrderID       string
	ProductID     string
	UserID        string
	EventTime     time.Time
	Quantity      int
	Price         float64
	TotalAmount   float64
	PaymentMethod string
	City          string
	Source        string
	EventType     uint8
	Category      string
	Company       string
}
