package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-seat-booking/internal/booking"
	"github.com/iliyamo/railway-seat-booking/internal/config"
	"github.com/iliyamo/railway-seat-booking/internal/database"
	"github.com/iliyamo/railway-seat-booking/internal/handler"
	"github.com/iliyamo/railway-seat-booking/internal/middleware"
	"github.com/iliyamo/railway-seat-booking/internal/payment"
	"github.com/iliyamo/railway-seat-booking/internal/queue"
	"github.com/iliyamo/railway-seat-booking/internal/repository"
	"github.com/iliyamo/railway-seat-booking/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories.
	store := repository.NewBookingStore(db)
	users := repository.NewUserRepository(db)
	tokens := repository.NewRefreshTokenRepository(db)
	stations := repository.NewStationRepo(db)
	trains := repository.NewTrainRepo(db)
	runs := repository.NewTrainRunRepo(db)

	// Booking engine.  One lock set shared by every component so all
	// mutations of a train run serialize on the same mutex.
	locks := booking.NewRunLocks()
	clock := booking.SystemClock()
	oracle := payment.NewMockGateway()
	holds := booking.NewHoldManager(store, locks, clock, cfg.HoldMinTTL, cfg.HoldMaxTTL)
	coordinator := booking.NewCoordinator(store, oracle, locks, clock, cfg.PaymentTimeout)
	canceller := booking.NewCanceller(store, locks, clock, booking.DepartureCutoff(cfg.CancelCutoff))

	reaper := booking.NewReaper(store, clock, cfg.ReaperInterval, cfg.ReaperBatch)
	ctx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go reaper.Run(ctx)

	// Booking event consumer; runs its own reconnect loop.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking-consumer: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true

	// Redis-backed rate limiting and response caching degrade to
	// passthrough when Redis is down.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and response cache disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterCatalog(e, handler.NewCatalogHandler(stations, trains, runs), cache)
	router.RegisterBooking(e, handler.NewBookingHandler(holds, coordinator, canceller, store), cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(stations, trains, runs), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
