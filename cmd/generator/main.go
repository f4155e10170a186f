package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/joho/godotenv"

	"luxtravel/internal/catalog"
	"luxtravel/internal/config"
	"luxtravel/internal/database"
	"luxtravel/internal/external"
	"luxtravel/internal/logger"
	"luxtravel/internal/messaging"
	"luxtravel/internal/models"
	"luxtravel/internal/pricing"
	"luxtravel/internal/repository"
	"luxtravel/internal/service"
)

var (
	count    = flag.Int("count", 100, "Number of bookings to generate")
	users    = flag.Int("users", 10, "Number of distinct demo users")
	paidRate = flag.Float64("paid", 0.5, "Share of generated bookings to pay for (0..1)")
	seed     = flag.Uint64("seed", 0, "Random seed (0 = time based)")
	dryRun   = flag.Bool("dry-run", false, "Show what would be generated without making changes")
)

// BookingGenerator fills the booking store with demo data for local runs and load tests
type BookingGenerator struct {
	items  []models.CatalogItem
	addOns []models.AddOn
	rnd    *rand.Rand
	now    time.Time
	users  int
	paid   float64
}

func main() {
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting booking generator...", "count", *count, "dry_run", *dryRun)

	ctx := context.Background()

	static, err := catalog.NewDefault()
	if err != nil {
		slog.Error("Failed to load catalog", "error", err)
		os.Exit(1)
	}
	addOns, _ := static.ListAddOns(ctx)

	s := *seed
	if s == 0 {
		s = uint64(time.Now().UnixNano())
	}
	gen := &BookingGenerator{
		items:  static.Items(),
		addOns: addOns,
		rnd:    rand.New(rand.NewPCG(s, s>>1)),
		now:    time.Now().UTC(),
		users:  max(*users, 1),
		paid:   *paidRate,
	}

	if *dryRun {
		for i := 0; i < *count; i++ {
			req := gen.Request()
			slog.Info("[DRY RUN] Would create booking",
				"catalog_item_id", req.CatalogItemID,
				"user_id", req.UserID,
				"start_date", req.StartDate,
				"end_date", req.EndDate,
				"travelers", req.TravelerCount,
				"add_ons", req.AddOnIDs)
		}
		return
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	bookings := service.NewBookingService(static, pricing.NewEngine(), repository.NewBookingRepository(db),
		external.NewSimulatedGateway(0), messaging.NoopPublisher{})

	created, paid, err := gen.Generate(ctx, bookings, *count)
	if err != nil {
		slog.Error("Failed to generate bookings", "error", err)
		os.Exit(1)
	}

	slog.Info("Booking generation completed successfully!", "created", created, "paid", paid)
}

type bookingCreator interface {
	Create(ctx context.Context, req *models.BookingRequest) (*models.Booking, error)
	Pay(ctx context.Context, id string, details models.PaymentDetails) (*models.Booking, error)
}

// Generate creates n bookings and pays for a share of them. Individual failures are
// logged and skipped.
func (g *BookingGenerator) Generate(ctx context.Context, bookings bookingCreator, n int) (created, paid int, err error) {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return created, paid, err
		}

		req := g.Request()
		booking, err := bookings.Create(ctx, req)
		if err != nil {
			slog.Error("Failed to create booking", "catalog_item_id", req.CatalogItemID, "error", err)
			continue
		}
		created++

		if g.rnd.Float64() >= g.paid {
			continue
		}
		if _, err := bookings.Pay(ctx, booking.ID, g.card(req.Name)); err != nil {
			slog.Error("Failed to pay for booking", "booking_id", booking.ID, "error", err)
			continue
		}
		paid++
	}

	if created == 0 && n > 0 {
		return 0, 0, fmt.Errorf("no bookings were created")
	}
	return created, paid, nil
}

// Request builds a random valid booking request
func (g *BookingGenerator) Request() *models.BookingRequest {
	item := g.items[g.rnd.IntN(len(g.items))]
	user := g.rnd.IntN(g.users) + 1

	req := &models.BookingRequest{
		CatalogItemID: item.ID,
		TravelerCount: g.rnd.IntN(6) + 1,
		Name:          fmt.Sprintf("Demo Traveler %d", user),
		Email:         fmt.Sprintf("traveler%d@example.com", user),
		UserID:        fmt.Sprintf("demo-user-%d", user),
	}

	if item.PriceUnit.RequiresDates() {
		start := g.now.AddDate(0, 0, g.rnd.IntN(170)+10)
		nights := g.rnd.IntN(13) + 2
		req.StartDate = start.Format(models.DateLayout)
		req.EndDate = start.AddDate(0, 0, nights).Format(models.DateLayout)
	}

	for _, i := range g.rnd.Perm(len(g.addOns))[:g.rnd.IntN(4)] {
		req.AddOnIDs = append(req.AddOnIDs, g.addOns[i].ID)
	}
	return req
}

func (g *BookingGenerator) card(name string) models.PaymentDetails {
	return models.PaymentDetails{
		Method:         models.MethodCreditCard,
		CardNumber:     "4242424242424242",
		CardholderName: name,
		ExpiryDate:     g.now.AddDate(3, 0, 0).Format("01/06"),
		CVV:            "123",
	}
}
