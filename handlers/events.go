package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/harshits337/e-commerce-data-pipeline/kafka"
	"github.com/harshits337/e-commerce-data-pipeline/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EventPublisher is the slice of the Kafka producer the ingestion endpoints
// need.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, event any) bool
	State() kafka.ConnState
}

// EventHandler serves the three ingestion endpoints and the health check.
// Publishing is fire-and-forget: the HTTP response never reflects publish
// failures, because a dropped event is preferable to a failed storefront
// action. Malformed bodies are the only client-visible error.
type EventHandler struct {
	publisher EventPublisher
	logger    *zap.Logger
	startedAt time.Time
}

func NewEventHandler(publisher EventPublisher, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		publisher: publisher,
		logger:    logger,
		startedAt: time.Now(),
	}
}

func (h *EventHandler) ViewProduct(c *gin.Context) {
	var req models.ViewProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := models.ProductViewEvent{
		UserID:    req.UserID,
		ProductID: req.ProductID,
		Timestamp: defaultTimestamp(req.Timestamp),
	}
	h.publishAsync(c.Request.Context(), kafka.TopicProductViews, req.UserID, event)

	c.JSON(http.StatusOK, gin.H{"message": "Product viewed successfully"})
}

func (h *EventHandler) AddToCart(c *gin.Context) {
	var req models.AddCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := models.CartEvent{
		UserID:    req.UserID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Timestamp: defaultTimestamp(req.Timestamp),
	}
	h.publishAsync(c.Request.Context(), kafka.TopicCartEvents, req.UserID, event)

	c.JSON(http.StatusOK, gin.H{"message": "Product added to cart successfully"})
}

func (h *EventHandler) PlaceOrder(c *gin.Context) {
	var req models.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := models.OrderEvent{
		OrderID:       req.OrderID,
		UserID:        req.UserID,
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		PaymentMethod: req.PaymentMethod,
		ShippingCity:  req.ShippingCity,
		Source:        req.Source,
		Timestamp:     defaultTimestamp(req.Timestamp),
	}
	h.publishAsync(c.Request.Context(), kafka.TopicOrderEvents, req.UserID, event)

	c.JSON(http.StatusOK, gin.H{"message": "Order placed successfully"})
}

// publishAsync hands the event to the producer without blocking the request.
// The outcome is observed only through logs and metrics.
func (h *EventHandler) publishAsync(ctx context.Context, topic, key string, event any) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if ok := h.publisher.Publish(ctx, topic, key, event); !ok {
			h.logger.Warn("Event dropped", zap.String("topic", topic), zap.String("key", key))
		}
	}()
}

// Health reports 200 when the event log connection is healthy, 206 otherwise.
func (h *EventHandler) Health(c *gin.Context) {
	state := h.publisher.State()
	connected := state == kafka.StateConnected

	status := "healthy"
	code := http.StatusOK
	if !connected {
		status = "degraded"
		code = http.StatusPartialContent
	}

	now := time.Now().UTC().Format(time.RFC3339)
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": now,
		"services": gin.H{
			"api": gin.H{
				"status": "healthy",
				"uptime": time.Since(h.startedAt).Seconds(),
			},
			"kafka": gin.H{
				"status":    state.String(),
				"connected": connected,
				"timestamp": now,
			},
		},
	})
}

// defaultTimestamp stamps events that arrive without a caller timestamp with
// the publish time.
func defaultTimestamp(ts string) string {
	if ts != "" {
		return ts
	}
	return time.Now().UTC().Format(time.RFC3339)
}
