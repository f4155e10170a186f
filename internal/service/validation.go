package service

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names so messages match the request body
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags of v and converts failures into a ValidationError.
func validateStruct(v any, verr *apperrors.ValidationError) {
	err := validate.Struct(v)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("request", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		verr.Add(fieldPath(fe), fieldMessage(fe))
	}
}

// fieldPath drops the struct name prefix: "BookingRequest.addOnIds[0]" -> "addOnIds[0]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}

func normalizeBookingRequest(req *models.BookingRequest) {
	req.CatalogItemID = strings.TrimSpace(req.CatalogItemID)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.StartDate = strings.TrimSpace(req.StartDate)
	req.EndDate = strings.TrimSpace(req.EndDate)
	for i, id := range req.AddOnIDs {
		req.AddOnIDs[i] = strings.TrimSpace(id)
	}
}

// parseStay parses the optional calendar dates. Unparseable dates are already reported by the
// struct tags, so they are simply left zero here.
func parseStay(req *models.BookingRequest) (start, end time.Time) {
	if req.StartDate != "" {
		start, _ = time.ParseInLocation(models.DateLayout, req.StartDate, time.UTC)
	}
	if req.EndDate != "" {
		end, _ = time.ParseInLocation(models.DateLayout, req.EndDate, time.UTC)
	}
	return start, end
}

// validateStay applies the date rules that depend on the item's price unit.
func validateStay(unit models.PriceUnit, req *models.BookingRequest, start, end time.Time, verr *apperrors.ValidationError) {
	hasStart, hasEnd := req.StartDate != "", req.EndDate != ""

	if unit.RequiresDates() {
		if !hasStart {
			verr.Add("startDate", "is required")
		}
		if !hasEnd {
			verr.Add("endDate", "is required")
		}
	} else if hasStart != hasEnd {
		verr.Add("endDate", "startDate and endDate must be given together")
	}

	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		verr.Add("endDate", "must be after startDate")
	}
}

// validatePaymentDetails checks the method and, for cards, the card fields the payment form collects.
func validatePaymentDetails(p *models.PaymentDetails, now time.Time) error {
	verr := apperrors.NewValidationError()
	validateStruct(p, verr)

	if p.Method != models.MethodCreditCard {
		return verr.OrNil()
	}

	if !validCardNumber(p.CardNumber) {
		verr.Add("cardNumber", "must be a valid card number")
	}
	if strings.TrimSpace(p.CardholderName) == "" {
		verr.Add("cardholderName", "is required")
	}
	if err := validateExpiry(p.ExpiryDate, now); err != nil {
		verr.Add("expiryDate", err.Error())
	}
	if validate.Var(strings.TrimSpace(p.CVV), "number,min=3,max=4") != nil {
		verr.Add("cvv", "must be 3 or 4 digits")
	}

	return verr.OrNil()
}

// validateExpiry accepts MM/YY and rejects cards that expired before the current month.
func validateExpiry(expiry string, now time.Time) error {
	parts := strings.Split(strings.TrimSpace(expiry), "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return fmt.Errorf("must be in MM/YY format")
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return fmt.Errorf("must be in MM/YY format")
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("must be in MM/YY format")
	}

	now = now.UTC()
	expiresAt := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.Before(expiresAt) {
		return fmt.Errorf("card has expired")
	}
	return nil
}

// validCardNumber accepts digits grouped by spaces or dashes; the credit_card tag checks
// length and the Luhn checksum.
func validCardNumber(number string) bool {
	return validate.Var(digitsOnly(number), "credit_card") == nil
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		if r == ' ' || r == '-' {
			return -1
		}
		return 'x'
	}, s)
}
