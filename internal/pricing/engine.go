package pricing

import (
	"fmt"
	"time"

	apperrors "luxtravel/internal/errors"
	"luxtravel/internal/models"
)

// ServiceFeePercent is the surcharge applied on top of the base price.
const ServiceFeePercent = 10

const day = 24 * time.Hour

// Stay holds the trip parameters a price depends on. Dates may be zero for per-person items.
type Stay struct {
	Start     time.Time
	End       time.Time
	Travelers int
}

// Engine computes price breakdowns. It has no state and is safe for concurrent use.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Quote prices item for stay with the already-resolved add-ons.
func (e *Engine) Quote(item models.ItemSnapshot, stay Stay, addOns []models.AddOn) (models.PriceBreakdown, error) {
	verr := apperrors.NewValidationError()

	if item.Price <= 0 {
		return models.PriceBreakdown{}, fmt.Errorf("item %s has non-positive price %d", item.ID, item.Price)
	}
	if stay.Travelers < 1 {
		verr.Add("travelerCount", "must be at least 1")
	}

	var breakdown models.PriceBreakdown
	if !stay.Start.IsZero() && !stay.End.IsZero() {
		breakdown.DurationDays = DurationDays(stay.Start, stay.End)
	}

	switch item.PriceUnit {
	case models.PerNight, models.PerWeek:
		if stay.Start.IsZero() || stay.End.IsZero() {
			verr.Add("startDate", "start and end dates are required")
		} else if breakdown.DurationDays <= 0 {
			verr.Add("endDate", "must be after start date")
		}
	case models.PerPerson:
	default:
		return models.PriceBreakdown{}, fmt.Errorf("item %s: unknown price unit %q", item.ID, item.PriceUnit)
	}

	var addOnsTotal int64
	for _, a := range addOns {
		if a.Price < 0 {
			verr.Add("addOnIds", fmt.Sprintf("add-on %s has a negative price", a.ID))
			continue
		}
		addOnsTotal += a.Price
	}

	if err := verr.OrNil(); err != nil {
		return models.PriceBreakdown{}, err
	}

	switch item.PriceUnit {
	case models.PerNight:
		breakdown.Units = breakdown.DurationDays
	case models.PerWeek:
		breakdown.Units = (breakdown.DurationDays + 6) / 7
	case models.PerPerson:
		breakdown.Units = stay.Travelers
	}

	breakdown.BasePrice = item.Price * int64(breakdown.Units)
	breakdown.AddOnsTotal = addOnsTotal
	breakdown.ServiceFee = ServiceFee(breakdown.BasePrice)
	breakdown.TotalPrice = breakdown.BasePrice + breakdown.AddOnsTotal + breakdown.ServiceFee

	return breakdown, nil
}

// ServiceFee returns ServiceFeePercent of base rounded half up to a whole currency unit.
func ServiceFee(base int64) int64 {
	if base <= 0 {
		return 0
	}
	return (base*ServiceFeePercent + 50) / 100
}

// DurationDays is the number of whole days from start to end, a partial day counting as one.
func DurationDays(start, end time.Time) int {
	d := end.Sub(start)
	days := int(d / day)
	if d%day > 0 {
		days++
	}
	return days
}
