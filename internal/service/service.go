package service

import (
	"luxtravel/internal/catalog"
	"luxtravel/internal/external"
	"luxtravel/internal/messaging"
	"luxtravel/internal/pricing"
	"luxtravel/internal/repository"
)

type Services struct {
	Catalog  *CatalogService
	Bookings *BookingService
}

func NewServices(provider catalog.Provider, cache QueryCache, store repository.BookingStore, gateway external.PaymentGateway, publisher messaging.Publisher, opts ...Option) *Services {
	return &Services{
		Catalog:  NewCatalogService(provider, cache),
		Bookings: NewBookingService(provider, pricing.NewEngine(), store, gateway, publisher, opts...),
	}
}
