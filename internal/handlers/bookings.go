package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"luxtravel/internal/models"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

// Quote - POST /api/quote
// Рассчитать стоимость без создания бронирования
func (h *Handlers) Quote(c *gin.Context) {
	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	quote, err := h.services.Bookings.Quote(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err, "price booking")
		return
	}

	respond(c, http.StatusOK, "", quote)
}

// CreateBooking - POST /api/bookings
// Создать бронирование
func (h *Handlers) CreateBooking(c *gin.Context) {
	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	req.UserID = userID(c)

	key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	booking, replayed, err := h.services.Bookings.CreateIdempotent(c.Request.Context(), key, &req)
	if err != nil {
		writeError(c, err, "create booking")
		return
	}

	if replayed {
		c.Header(HeaderReplayed, "true")
		respond(c, http.StatusOK, booking.ID, booking)
		return
	}
	respond(c, http.StatusCreated, booking.ID, booking)
}

// ListBookings - GET /api/bookings
// Получить список бронирований текущего пользователя
func (h *Handlers) ListBookings(c *gin.Context) {
	bookings, err := h.services.Bookings.ListByUser(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err, "list bookings")
		return
	}

	respond(c, http.StatusOK, "", bookings)
}

// GetBooking - GET /api/bookings/:id
func (h *Handlers) GetBooking(c *gin.Context) {
	booking, err := h.services.Bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "get booking")
		return
	}

	respond(c, http.StatusOK, booking.ID, booking)
}

// PayBooking - POST /api/bookings/:id/pay
// Оплатить бронирование
func (h *Handlers) PayBooking(c *gin.Context) {
	var req models.PayBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	h.pay(c, c.Param("id"), req.PaymentDetails)
}

// PayBookingByBody - PATCH /api/bookings/pay
// Та же оплата, идентификатор бронирования передается в теле
func (h *Handlers) PayBookingByBody(c *gin.Context) {
	var req models.PayBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.BookingID) == "" {
		badRequest(c, "bookingId is required")
		return
	}
	h.pay(c, strings.TrimSpace(req.BookingID), req.PaymentDetails)
}

func (h *Handlers) pay(c *gin.Context, id string, details models.PaymentDetails) {
	booking, err := h.services.Bookings.Pay(c.Request.Context(), id, details)
	if err != nil {
		writeBookingError(c, err, "process payment", booking)
		return
	}

	respond(c, http.StatusOK, booking.ID, booking)
}

// CancelBooking - POST /api/bookings/:id/cancel
// Отменить бронирование, тело с причиной необязательно
func (h *Handlers) CancelBooking(c *gin.Context) {
	var req models.CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}
	}
	h.cancel(c, c.Param("id"), req.Reason)
}

// CancelBookingByBody - PATCH /api/bookings/cancel
func (h *Handlers) CancelBookingByBody(c *gin.Context) {
	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.BookingID) == "" {
		badRequest(c, "bookingId is required")
		return
	}
	h.cancel(c, strings.TrimSpace(req.BookingID), req.Reason)
}

func (h *Handlers) cancel(c *gin.Context, id, reason string) {
	booking, err := h.services.Bookings.Cancel(c.Request.Context(), id, reason)
	if err != nil {
		writeError(c, err, "cancel booking")
		return
	}

	respond(c, http.StatusOK, booking.ID, booking)
}

// CompleteBooking - POST /api/bookings/:id/complete
// Административное завершение поездки
func (h *Handlers) CompleteBooking(c *gin.Context) {
	booking, err := h.services.Bookings.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "complete booking")
		return
	}

	respond(c, http.StatusOK, booking.ID, booking)
}

// RepriceBooking - POST /api/bookings/:id/reprice
// Пересчитать цену неоплаченного бронирования по текущему каталогу
func (h *Handlers) RepriceBooking(c *gin.Context) {
	booking, err := h.services.Bookings.Reprice(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "reprice booking")
		return
	}

	respond(c, http.StatusOK, booking.ID, booking)
}
