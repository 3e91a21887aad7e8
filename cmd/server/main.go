package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/cinebooker/cinebooker/internal/config"
	"github.com/cinebooker/cinebooker/internal/database"
	"github.com/cinebooker/cinebooker/internal/handler"
	"github.com/cinebooker/cinebooker/internal/middleware"
	"github.com/cinebooker/cinebooker/internal/payment"
	"github.com/cinebooker/cinebooker/internal/queue"
	"github.com/cinebooker/cinebooker/internal/repository"
	"github.com/cinebooker/cinebooker/internal/router"
	"github.com/cinebooker/cinebooker/internal/service"
	"github.com/cinebooker/cinebooker/internal/worker"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	cinemaRepo := repository.NewCinemaRepo(db)
	hallRepo := repository.NewHallRepo(db)
	seatRepo := repository.NewSeatRepo(db)
	showRepo := repository.NewShowRepo(db)
	showSeatRepo := repository.NewShowSeatRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	store := repository.NewStore(db, showRepo, showSeatRepo, bookingRepo)

	var gateway payment.Gateway
	if cfg.CheckoutSecretKey != "" {
		gateway = payment.NewCheckoutClient(payment.CheckoutConfig{
			SecretKey:  cfg.CheckoutSecretKey,
			BaseURL:    cfg.CheckoutBaseURL,
			SuccessURL: cfg.CheckoutSuccessURL,
			CancelURL:  cfg.CheckoutCancelURL,
		})
	} else {
		log.Println("no CHECKOUT_SECRET_KEY set, using mock payment gateway")
		gateway = payment.NewMockGateway()
	}

	svc := service.NewBookingService(store, gateway, cfg.LockTTL, cfg.Currency, service.CheckoutURLs{
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	// Redis is optional: without it the limiter and cache disable
	// themselves and every request goes straight to the database.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and response cache disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	// The response cache is mounted per route on the public catalog
	// reads in RegisterPublic, never globally: authenticated and
	// state-changing endpoints must not be served from cache.
	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	publicHandler := handler.NewPublicHandler(cinemaRepo, hallRepo, showRepo)
	bookingHandler := handler.NewBookingHandler(svc, showRepo, hallRepo, showSeatRepo, bookingRepo)
	catalogHandler := handler.NewOwnerCatalogHandler(cinemaRepo, hallRepo, seatRepo)
	ownerShowHandler := handler.NewOwnerShowHandler(hallRepo, seatRepo, showRepo, showSeatRepo, bookingRepo, store)

	router.RegisterRoutes(e)
	router.RegisterPublic(e, publicHandler, bookingHandler, cacheMW)
	router.RegisterCustomer(e, bookingHandler, cfg.JWTSecret)
	router.RegisterOwner(e, catalogHandler, ownerShowHandler, cfg.JWTSecret)

	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	reaper := worker.NewReaper(svc, cfg.ReaperInterval)
	if err := reaper.Start(); err != nil {
		log.Fatalf("reaper: %v", err)
	}
	defer reaper.Stop()

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
