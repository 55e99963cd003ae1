// Command server runs the seat reservation API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tessera-live/ticket-reservation/internal/clock"
	"github.com/tessera-live/ticket-reservation/internal/config"
	"github.com/tessera-live/ticket-reservation/internal/database"
	"github.com/tessera-live/ticket-reservation/internal/handler"
	"github.com/tessera-live/ticket-reservation/internal/logger"
	"github.com/tessera-live/ticket-reservation/internal/payment"
	"github.com/tessera-live/ticket-reservation/internal/queue"
	"github.com/tessera-live/ticket-reservation/internal/repository"
	"github.com/tessera-live/ticket-reservation/internal/router"
	"github.com/tessera-live/ticket-reservation/internal/service"
	"github.com/tessera-live/ticket-reservation/internal/tasks"
	"github.com/tessera-live/ticket-reservation/internal/worker"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(cfg.Env); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Get()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalw("database connection failed", "error", err)
	}
	defer db.Close()
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalw("schema migration failed", "error", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warnw("redis unavailable; response cache disabled, sweep falls back to in-process ticker")
	}

	ledgerRepo := repository.NewLedgerRepo(db)
	cartRepo := repository.NewCartRepo(db)
	catalogRepo := repository.NewCatalogRepo(db)
	orderRepo := repository.NewOrderRepo(db)

	clk := clock.NewSystem()
	holdTTL := time.Duration(cfg.HoldTTLMin) * time.Minute

	holds := service.NewHoldService(ledgerRepo, cartRepo, catalogRepo, clk, holdTTL)
	checkout := service.NewCheckoutService(ledgerRepo, cartRepo, catalogRepo, orderRepo, queue.NewPublisher(), clk)
	sweeper := service.NewSweepService(ledgerRepo, cartRepo, clk, cfg.SweepBatch)
	inventory := service.NewInventoryService(ledgerRepo, catalogRepo)
	tickets := service.NewTicketService(orderRepo, ledgerRepo)
	payments := service.NewPaymentService(payment.NewMockGateway(true), cartRepo, catalogRepo, checkout, clk, "USD")

	// Sweep scheduling: asynq over Redis when the broker is up, otherwise a
	// plain ticker in this process.
	if rdb != nil {
		go func() {
			if err := tasks.Run(config.RedisAddr(), tasks.NewHandlers(sweeper)); err != nil {
				log.Errorw("task server stopped", "error", err)
			}
		}()
	} else {
		w := worker.NewSweeper(sweeper, time.Duration(cfg.SweepIntervalSec)*time.Second)
		w.Start()
		defer w.Stop()
	}

	go queue.StartOrderConsumer()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.Register(e, router.Handlers{
		Inventory:   handler.NewInventoryHandler(inventory),
		Reservation: handler.NewReservationHandler(holds),
		Checkout:    handler.NewCheckoutHandler(checkout, payments),
		Orders:      handler.NewOrderHandler(tickets),
		Admin:       handler.NewAdminHandler(sweeper, tickets),
	}, cfg.JWTSecret, rdb)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil {
			log.Infow("http server stopped", "error", err)
		}
	}()
	log.Infow("server started", "port", cfg.Port, "env", cfg.Env)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Errorw("graceful shutdown failed", "error", err)
	}
	log.Infow("server stopped")
}
