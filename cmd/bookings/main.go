package main

import (
	"gigmarket/internal/bookings/handler"
	"gigmarket/internal/bookings/repository"
	"gigmarket/internal/bookings/service"
	"gigmarket/internal/bookings/validator"
	escrowhandler "gigmarket/internal/escrow/handler"
	escrowservice "gigmarket/internal/escrow/service"
	performerrepository "gigmarket/internal/performers/repository"
	performerservice "gigmarket/internal/performers/service"
	performervalidator "gigmarket/internal/performers/validator"
	"gigmarket/pkg/app"
	"gigmarket/pkg/config"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Bookings service")
	serverApp := app.NewApplication(cfg)
	notifier, closeNotifier := app.NewNotifier(cfg)
	serverApp.OnShutdown(closeNotifier)

	bookingRepo := repository.NewMongoBookingRepository(cfg)
	bookingService := service.NewBookingService(
		bookingRepo,
		validator.NewBookingValidator(cfg.Log),
		performerLookup(cfg),
		notifier,
		cfg,
	)
	escrowService := escrowservice.NewEscrowService(bookingRepo, notifier, cfg)
	cfg.Log.Info("Booking and escrow services initialized", "database", cfg.MongoDatabaseName)

	serverApp.SetApp(
		handler.NewBookingHandler(bookingService, cfg.Log, cfg.MaxPaginationLimit),
		escrowhandler.NewEscrowHandler(escrowService, cfg.Log),
	)
	serverApp.Run()
}

func performerLookup(cfg *config.Config) performerservice.Lookup {
	performerCache := app.PerformerCache(cfg)
	performers := performerservice.NewPerformerService(
		performerrepository.NewMongoPerformerRepository(cfg),
		performervalidator.NewPerformerValidator(cfg.Log),
		performerCache,
		cfg,
	)
	return performerservice.NewCachedLookup(performers, performerCache)
}
