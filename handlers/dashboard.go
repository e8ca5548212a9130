package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/harshits337/e-commerce-data-pipeline/analytics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DashboardStore is the slice of the analytics store the dashboard endpoint
// needs.
type DashboardStore interface {
	Dashboard(ctx context.Context, token string) (*analytics.Dashboard, error)
}

type DashboardHandler struct {
	store  DashboardStore
	logger *zap.Logger
}

func NewDashboardHandler(store DashboardStore, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{store: store, logger: logger}
}

func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	token := c.Query("range")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"message":         "Range parameter is required",
			"example":         "?range=7day",
			"supportedRanges": analytics.SupportedRanges(),
		})
		return
	}

	dashboard, err := h.store.Dashboard(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidRange) {
			c.JSON(http.StatusBadRequest, gin.H{
				"message":         "Invalid range parameter",
				"supportedRanges": analytics.SupportedRanges(),
			})
			return
		}
		h.logger.Error("Failed to fetch dashboard data", zap.String("range", token), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Dashboard data fetched successfully",
		"data":    dashboard.Data,
		"stats":   dashboard.Stats,
		"summary": dashboard.Summary,
	})
}
