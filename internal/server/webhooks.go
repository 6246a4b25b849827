package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	rewarddomain "github.com/checkoutplus/cashback/internal/reward/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type shopifyOrderCustomer struct {
	ID        json.Number `json:"id"`
	FirstName string      `json:"first_name"`
	Email     string      `json:"email"`
}

type shopifyOrderPayload struct {
	ID             json.Number                  `json:"id"`
	Name           string                       `json:"name"`
	Email          string                       `json:"email"`
	ContactEmail   string                       `json:"contact_email"`
	TotalPrice     string                       `json:"total_price"`
	CreatedAt      string                       `json:"created_at"`
	Customer       *shopifyOrderCustomer        `json:"customer"`
	NoteAttributes []rewarddomain.NoteAttribute `json:"note_attributes"`
	LineItems      []rewarddomain.LineItem      `json:"line_items"`
	OrderStatusURL string                       `json:"order_status_url"`
}

type webhookResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// HandleOrderCreated ingests the orders/create webhook. The platform
// redelivers on non-2xx, so validation failures answer 200 with a
// skipped status; only store errors surface as 500 (the insert is
// idempotent, redelivery is safe).
func (s *Server) HandleOrderCreated(c *gin.Context) {
	var payload shopifyOrderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.log.Warn("webhook payload rejected", zap.Error(err))
		c.JSON(http.StatusOK, webhookResponse{Status: "skipped", Message: "invalid payload"})
		return
	}

	event := toOrderEvent(c, payload)

	result, err := s.rewardSvc.Intake(c.Request.Context(), event)
	if err != nil {
		switch {
		case errors.Is(err, rewarddomain.ErrMissingOrderID),
			errors.Is(err, rewarddomain.ErrMissingEmail),
			errors.Is(err, rewarddomain.ErrMissingShopDomain),
			errors.Is(err, rewarddomain.ErrInvalidAmount):
			c.JSON(http.StatusOK, webhookResponse{
				Status:  "skipped",
				OrderID: event.OrderID,
				Message: err.Error(),
			})
			return
		default:
			AbortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, webhookResponse{
		Status:  string(result.Outcome),
		OrderID: event.OrderID,
	})
}

func toOrderEvent(c *gin.Context, payload shopifyOrderPayload) rewarddomain.OrderEvent {
	event := rewarddomain.OrderEvent{
		OrderID:        payload.ID.String(),
		OrderName:      payload.Name,
		Email:          payload.Email,
		TotalPrice:     payload.TotalPrice,
		NoteAttributes: payload.NoteAttributes,
		LineItems:      payload.LineItems,
		ShopDomain:     c.GetHeader("X-Shopify-Shop-Domain"),
	}

	if event.Email == "" {
		event.Email = payload.ContactEmail
	}
	if payload.Customer != nil {
		event.CustomerID = payload.Customer.ID.String()
		event.CustomerFirstName = payload.Customer.FirstName
		if event.Email == "" {
			event.Email = payload.Customer.Email
		}
	}
	if event.ShopDomain == "" {
		event.ShopDomain = shopDomainFromStatusURL(payload.OrderStatusURL)
	}
	if ts, err := time.Parse(time.RFC3339, payload.CreatedAt); err == nil {
		event.CreatedAt = ts
	}

	return event
}

func shopDomainFromStatusURL(raw string) string {
	raw = strings.TrimPrefix(raw, "https://")
	raw = strings.TrimPrefix(raw, "http://")
	if idx := strings.IndexByte(raw, '/'); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}
