package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"luxtravel/internal/external"
	"luxtravel/internal/models"
)

// SpecValidator прогоняет сквозной сценарий бронирования против запущенного API
type SpecValidator struct {
	baseURL string
	client  *http.Client
	userID  string
}

// NewSpecValidator создает новый валидатор
func NewSpecValidator(baseURL string) *SpecValidator {
	return &SpecValidator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		userID:  fmt.Sprintf("validator-%d", time.Now().UnixNano()),
	}
}

// ValidateAll проверяет все endpoints
func (v *SpecValidator) ValidateAll() error {
	log.Println("Начинаю валидацию API...")

	if err := v.validateCatalog(); err != nil {
		return fmt.Errorf("catalog validation failed: %w", err)
	}

	if err := v.validateBookings(); err != nil {
		return fmt.Errorf("bookings validation failed: %w", err)
	}

	if err := v.validateErrors(); err != nil {
		return fmt.Errorf("error handling validation failed: %w", err)
	}

	log.Println("✅ Все endpoints прошли валидацию успешно!")
	return nil
}

func (v *SpecValidator) validateCatalog() error {
	log.Println("Проверяю Catalog endpoints...")

	var items []models.CatalogItem
	if err := v.expect("GET", "/api/catalog", nil, http.StatusOK, &items); err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("GET /api/catalog: expected non-empty list")
	}

	var featured []models.CatalogItem
	if err := v.expect("GET", "/api/catalog?featured=true", nil, http.StatusOK, &featured); err != nil {
		return err
	}
	for _, item := range featured {
		if !item.Featured {
			return fmt.Errorf("GET /api/catalog?featured=true: %s is not featured", item.ID)
		}
	}

	var item models.CatalogItem
	if err := v.expect("GET", "/api/catalog/"+items[0].ID, nil, http.StatusOK, &item); err != nil {
		return err
	}
	if item.ID != items[0].ID {
		return fmt.Errorf("GET /api/catalog/%s: got item %s", items[0].ID, item.ID)
	}

	var addOns []models.AddOn
	if err := v.expect("GET", "/api/addons", nil, http.StatusOK, &addOns); err != nil {
		return err
	}
	if len(addOns) == 0 {
		return fmt.Errorf("GET /api/addons: expected non-empty list")
	}

	log.Println("✅ Catalog endpoints валидны")
	return nil
}

func (v *SpecValidator) validateBookings() error {
	log.Println("Проверяю Bookings endpoints...")

	start := time.Now().UTC().AddDate(0, 2, 0)
	req := models.BookingRequest{
		CatalogItemID: "safari-lodge",
		StartDate:     start.Format(models.DateLayout),
		EndDate:       start.AddDate(0, 0, 5).Format(models.DateLayout),
		TravelerCount: 2,
		Name:          "Validation Run",
		Email:         "validator@example.com",
		AddOnIDs:      []string{"spa-package"},
	}

	// POST /api/quote
	var quote models.QuoteResponse
	if err := v.expect("POST", "/api/quote", req, http.StatusOK, &quote); err != nil {
		return err
	}
	if quote.Price.TotalPrice <= 0 {
		return fmt.Errorf("POST /api/quote: expected positive total")
	}

	// POST /api/bookings
	var booking models.Booking
	if err := v.expect("POST", "/api/bookings", req, http.StatusCreated, &booking); err != nil {
		return err
	}
	if booking.ID == "" || booking.Status != models.StatusPending {
		return fmt.Errorf("POST /api/bookings: unexpected booking %q in status %s", booking.ID, booking.Status)
	}
	if booking.Price.TotalPrice != quote.Price.TotalPrice {
		return fmt.Errorf("POST /api/bookings: total %d differs from quote %d", booking.Price.TotalPrice, quote.Price.TotalPrice)
	}

	// GET /api/bookings
	var list []models.Booking
	if err := v.expect("GET", "/api/bookings", nil, http.StatusOK, &list); err != nil {
		return err
	}
	if len(list) != 1 || list[0].ID != booking.ID {
		return fmt.Errorf("GET /api/bookings: expected only %s, got %d bookings", booking.ID, len(list))
	}

	// POST /api/bookings/:id/pay с отклоняемой картой
	declined := models.PayBookingRequest{PaymentDetails: card(external.DeclinedTestCard)}
	if err := v.expect("POST", "/api/bookings/"+booking.ID+"/pay", declined, http.StatusPaymentRequired, nil); err != nil {
		return err
	}

	// PATCH /api/bookings/pay, повторная попытка после отказа
	approved := models.PayBookingRequest{BookingID: booking.ID, PaymentDetails: card("4242424242424242")}
	if err := v.expect("PATCH", "/api/bookings/pay", approved, http.StatusOK, &booking); err != nil {
		return err
	}
	if booking.PaymentStatus != models.PaymentPaid || booking.Status != models.StatusConfirmed {
		return fmt.Errorf("PATCH /api/bookings/pay: got %s/%s", booking.Status, booking.PaymentStatus)
	}

	// PATCH /api/bookings/cancel
	cancel := models.CancelBookingRequest{BookingID: booking.ID, Reason: "validation run"}
	if err := v.expect("PATCH", "/api/bookings/cancel", cancel, http.StatusOK, &booking); err != nil {
		return err
	}
	if booking.Status != models.StatusCancelled {
		return fmt.Errorf("PATCH /api/bookings/cancel: got status %s", booking.Status)
	}

	// GET /api/bookings/:id
	if err := v.expect("GET", "/api/bookings/"+booking.ID, nil, http.StatusOK, &booking); err != nil {
		return err
	}
	if booking.Status != models.StatusCancelled {
		return fmt.Errorf("GET /api/bookings/%s: got status %s", booking.ID, booking.Status)
	}

	log.Println("✅ Bookings endpoints валидны")
	return nil
}

func (v *SpecValidator) validateErrors() error {
	log.Println("Проверяю обработку ошибок...")

	invalid := models.BookingRequest{CatalogItemID: "safari-lodge", TravelerCount: 0}
	if err := v.expect("POST", "/api/bookings", invalid, http.StatusBadRequest, nil); err != nil {
		return err
	}
	if err := v.expect("GET", "/api/bookings/BK-00000000-000000000000", nil, http.StatusNotFound, nil); err != nil {
		return err
	}
	if err := v.expect("GET", "/api/catalog/atlantis", nil, http.StatusNotFound, nil); err != nil {
		return err
	}

	log.Println("✅ Ошибки обрабатываются корректно")
	return nil
}

func card(number string) models.PaymentDetails {
	return models.PaymentDetails{
		Method:         models.MethodCreditCard,
		CardNumber:     number,
		CardholderName: "Validation Run",
		ExpiryDate:     time.Now().UTC().AddDate(2, 0, 0).Format("01/06"),
		CVV:            "123",
	}
}

// expect выполняет запрос, проверяет статус и разбирает поле data из ответа
func (v *SpecValidator) expect(method, path string, body any, status int, out any) error {
	resp, err := v.makeRequest(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}
	if resp.StatusCode != status {
		return fmt.Errorf("%s %s: expected %d, got %d: %s", method, path, status, resp.StatusCode, raw)
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	if envelope.Success != (status < http.StatusBadRequest) {
		return fmt.Errorf("%s %s: unexpected success=%t", method, path, envelope.Success)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%s %s: failed to decode data: %w", method, path, err)
		}
	}
	return nil
}

func (v *SpecValidator) makeRequest(method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, v.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", v.userID)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	return resp, nil
}

// RunValidation запускает валидацию API
func RunValidation(baseURL string) error {
	return NewSpecValidator(baseURL).ValidateAll()
}
