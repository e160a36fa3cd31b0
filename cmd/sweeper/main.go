package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	bookingrepository "gigmarket/internal/bookings/repository"
	bookingservice "gigmarket/internal/bookings/service"
	bookingvalidator "gigmarket/internal/bookings/validator"
	escrowservice "gigmarket/internal/escrow/service"
	marketrepository "gigmarket/internal/market/repository"
	marketservice "gigmarket/internal/market/service"
	marketvalidator "gigmarket/internal/market/validator"
	performerrepository "gigmarket/internal/performers/repository"
	performerservice "gigmarket/internal/performers/service"
	performervalidator "gigmarket/internal/performers/validator"
	"gigmarket/internal/sweeper"
	"gigmarket/pkg/app"
	"gigmarket/pkg/cache"
	"gigmarket/pkg/config"
	mongotx "gigmarket/pkg/db/mongo"
	"gigmarket/pkg/model"
	"gigmarket/pkg/notify"
)

const JobName = "sweeper"

func main() {
	cfg := config.Load(JobName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	notifier, closeNotifier := app.NewNotifier(cfg, notify.Synchronous())
	defer closeNotifier()

	bookingRepo := bookingrepository.NewMongoBookingRepository(cfg)
	performers := performerservice.NewCachedLookup(
		performerservice.NewPerformerService(
			performerrepository.NewMongoPerformerRepository(cfg),
			performervalidator.NewPerformerValidator(cfg.Log),
			cache.Nop[*model.Performer]{},
			cfg,
		),
		cache.Nop[*model.Performer]{},
	)
	bookings := bookingservice.NewBookingService(bookingRepo, bookingvalidator.NewBookingValidator(cfg.Log), performers, notifier, cfg)
	market := marketservice.NewMarketService(
		marketrepository.NewMongoEventRepository(cfg),
		marketrepository.NewMongoBidRepository(cfg),
		mongotx.NewTransactionManager(cfg.Client.Mongo),
		bookings,
		performers,
		marketvalidator.NewMarketValidator(cfg.Log),
		notifier,
		cfg,
	)
	escrow := escrowservice.NewEscrowService(bookingRepo, notifier, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := sweeper.New(escrow, market, cfg)
	if err := s.Start(ctx); err != nil {
		cfg.Log.Fatal("Failed to start sweeper", "error", err)
	}

	<-ctx.Done()
	cfg.Log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := s.Stop(shutdownCtx); err != nil {
		cfg.Log.Error("Sweeper shutdown failed", "error", err)
	}
}
