package models

import (
	"fmt"
	"time"
)

// PriceUnit determines how a catalog item's unit price combines with trip parameters.
type PriceUnit string

const (
	PerNight  PriceUnit = "night"
	PerWeek   PriceUnit = "week"
	PerPerson PriceUnit = "person"
)

func ParsePriceUnit(s string) (PriceUnit, error) {
	switch u := PriceUnit(s); u {
	case PerNight, PerWeek, PerPerson:
		return u, nil
	default:
		return "", fmt.Errorf("unknown price unit: %q", s)
	}
}

// RequiresDates reports whether pricing depends on a date range.
func (u PriceUnit) RequiresDates() bool {
	return u == PerNight || u == PerWeek
}

type ItemKind string

const (
	KindDestination ItemKind = "destination"
	KindExperience  ItemKind = "experience"
)

// CatalogItem is a bookable destination or experience.
type CatalogItem struct {
	ID          string    `json:"id"`
	Kind        ItemKind  `json:"kind"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	PriceUnit   PriceUnit `json:"priceUnit"`
	Rating      float64   `json:"rating"`
	Image       string    `json:"image"`
	Amenities   []string  `json:"amenities"`
	Featured    bool      `json:"featured"`
	Category    string    `json:"category"`
}

func (i CatalogItem) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("catalog item: empty id")
	}
	if i.Price <= 0 {
		return fmt.Errorf("catalog item %s: price must be positive, got %d", i.ID, i.Price)
	}
	if _, err := ParsePriceUnit(string(i.PriceUnit)); err != nil {
		return fmt.Errorf("catalog item %s: %w", i.ID, err)
	}
	return nil
}

// Snapshot copies the pricing fields a booking must keep regardless of later catalog edits.
func (i CatalogItem) Snapshot() ItemSnapshot {
	return ItemSnapshot{
		ID:        i.ID,
		Title:     i.Title,
		Price:     i.Price,
		PriceUnit: i.PriceUnit,
	}
}

// CatalogFilter narrows a catalog query. Zero values match everything; FeaturedOnly
// has no way to ask for non-featured items.
type CatalogFilter struct {
	ID           string
	FeaturedOnly bool
	Category     string
	Kind         ItemKind
}

func (f CatalogFilter) Matches(i CatalogItem) bool {
	if f.ID != "" && i.ID != f.ID {
		return false
	}
	if f.FeaturedOnly && !i.Featured {
		return false
	}
	if f.Category != "" && i.Category != f.Category {
		return false
	}
	if f.Kind != "" && i.Kind != f.Kind {
		return false
	}
	return true
}

// AddOn is an optional paid extra attached to a booking.
type AddOn struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
}

func (a AddOn) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("add-on: empty id")
	}
	if a.Price < 0 {
		return fmt.Errorf("add-on %s: price must not be negative, got %d", a.ID, a.Price)
	}
	return nil
}

type ItemSnapshot struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Price     int64     `json:"price"`
	PriceUnit PriceUnit `json:"priceUnit"`
}

type PriceBreakdown struct {
	DurationDays int   `json:"durationDays"`
	Units        int   `json:"units"`
	BasePrice    int64 `json:"basePrice"`
	AddOnsTotal  int64 `json:"addOnsTotal"`
	ServiceFee   int64 `json:"serviceFee"`
	TotalPrice   int64 `json:"totalPrice"`
}

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Booking is the aggregate root owned by the booking service.
type Booking struct {
	ID               string         `json:"id"`
	UserID           string         `json:"userId"`
	CatalogItemID    string         `json:"catalogItemId"`
	Item             ItemSnapshot   `json:"item"`
	StartDate        *time.Time     `json:"startDate,omitempty"`
	EndDate          *time.Time     `json:"endDate,omitempty"`
	TravelerCount    int            `json:"travelerCount"`
	AddOnIDs         []string       `json:"addOnIds"`
	SpecialRequests  string         `json:"specialRequests,omitempty"`
	Contact          Contact        `json:"contact"`
	Price            PriceBreakdown `json:"priceBreakdown"`
	Status           Status         `json:"status"`
	PaymentStatus    PaymentStatus  `json:"paymentStatus"`
	PaymentReference string         `json:"paymentReference,omitempty"`
	Version          int64          `json:"-"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (b *Booking) Clone() *Booking {
	c := *b
	if b.StartDate != nil {
		t := *b.StartDate
		c.StartDate = &t
	}
	if b.EndDate != nil {
		t := *b.EndDate
		c.EndDate = &t
	}
	c.AddOnIDs = append([]string(nil), b.AddOnIDs...)
	return &c
}
