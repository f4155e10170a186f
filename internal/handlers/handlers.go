package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/logger"
	"luxtravel/internal/middleware"
	"luxtravel/internal/models"
	"luxtravel/internal/service"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

func userID(c *gin.Context) string {
	if id := c.GetString(middleware.UserIDKey); id != "" {
		return id
	}
	id, _ := logger.UserIDFromContext(c.Request.Context())
	return id
}

func respond(c *gin.Context, status int, bookingID string, data any) {
	c.JSON(status, models.APIResponse{Success: true, BookingID: bookingID, Data: data})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.APIResponse{Error: msg})
}

// writeError maps a service error onto the response envelope. Only typed errors reach the
// client verbatim; everything else becomes a generic message for action.
func writeError(c *gin.Context, err error, action string) {
	writeBookingError(c, err, action, nil)
}

// writeBookingError is writeError for failures that still return the booking, such as a
// declined payment.
func writeBookingError(c *gin.Context, err error, action string, booking *models.Booking) {
	_ = c.Error(err)

	resp := models.APIResponse{}
	if booking != nil {
		resp.BookingID = booking.ID
		resp.Data = booking
	}

	var (
		verr     *apperrors.ValidationError
		nfErr    *apperrors.NotFoundError
		stateErr *apperrors.InvalidStateError
		upErr    *apperrors.UpstreamError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		resp.Error = "Validation failed"
		resp.Fields = verr.Fields
	case errors.As(err, &nfErr):
		status = http.StatusNotFound
		resp.Error = nfErr.Error()
	case errors.As(err, &stateErr):
		status = http.StatusConflict
		resp.Error = stateErr.Error()
	case errors.Is(err, apperrors.ErrIdempotency):
		status = http.StatusConflict
		resp.Error = "Idempotency-Key conflicts with another request"
	case errors.Is(err, apperrors.ErrConflict):
		status = http.StatusConflict
		resp.Error = "Booking was modified concurrently, please retry"
	case errors.Is(err, apperrors.ErrUnauthorized):
		status = http.StatusUnauthorized
		resp.Error = "Request could not be authenticated"
	case errors.Is(err, apperrors.ErrPaymentDeclined):
		status = http.StatusPaymentRequired
		resp.Error = "Payment was declined"
	case errors.As(err, &upErr):
		status = http.StatusBadGateway
		resp.Error = "A required service is unavailable, please try again"
		if upErr.Timeout {
			status = http.StatusGatewayTimeout
			resp.Error = "A required service timed out, please try again"
		}
	default:
		resp.Error = "Failed to " + action
		logger.WithContext(c.Request.Context()).Error("Failed to "+action, "error", err)
	}

	c.JSON(status, resp)
}
