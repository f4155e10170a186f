package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"luxtravel/internal/logger"
	"luxtravel/internal/models"
)

// OnPaymentUpdates - POST /api/payments/notifications
// Принимать уведомления от платежного шлюза
func (h *Handlers) OnPaymentUpdates(c *gin.Context) {
	var notification models.PaymentNotificationPayload
	if err := c.ShouldBindJSON(&notification); err != nil {
		badRequest(c, "Invalid notification body")
		return
	}

	logger.WithContext(c.Request.Context()).Info("Payment notification received",
		"order_id", notification.OrderID,
		"payment_id", notification.PaymentID,
		"status", notification.Status)

	booking, err := h.services.Bookings.HandlePaymentNotification(c.Request.Context(), &notification)
	if err != nil {
		writeError(c, err, "handle payment notification")
		return
	}

	respond(c, http.StatusOK, booking.ID, nil)
}
