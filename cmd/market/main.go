package main

import (
	bookingrepository "gigmarket/internal/bookings/repository"
	bookingservice "gigmarket/internal/bookings/service"
	bookingvalidator "gigmarket/internal/bookings/validator"
	"gigmarket/internal/market/handler"
	"gigmarket/internal/market/repository"
	"gigmarket/internal/market/service"
	"gigmarket/internal/market/validator"
	performerrepository "gigmarket/internal/performers/repository"
	performerservice "gigmarket/internal/performers/service"
	performervalidator "gigmarket/internal/performers/validator"
	"gigmarket/pkg/app"
	"gigmarket/pkg/config"
	mongotx "gigmarket/pkg/db/mongo"
)

const ServiceName = "market"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Market service")
	serverApp := app.NewApplication(cfg)
	notifier, closeNotifier := app.NewNotifier(cfg)
	serverApp.OnShutdown(closeNotifier)

	performerCache := app.PerformerCache(cfg)
	performers := performerservice.NewCachedLookup(
		performerservice.NewPerformerService(
			performerrepository.NewMongoPerformerRepository(cfg),
			performervalidator.NewPerformerValidator(cfg.Log),
			performerCache,
			cfg,
		),
		performerCache,
	)
	bookings := bookingservice.NewBookingService(
		bookingrepository.NewMongoBookingRepository(cfg),
		bookingvalidator.NewBookingValidator(cfg.Log),
		performers,
		notifier,
		cfg,
	)
	marketService := service.NewMarketService(
		repository.NewMongoEventRepository(cfg),
		repository.NewMongoBidRepository(cfg),
		mongotx.NewTransactionManager(cfg.Client.Mongo),
		bookings,
		performers,
		validator.NewMarketValidator(cfg.Log),
		notifier,
		cfg,
	)
	cfg.Log.Info("Market service initialized", "database", cfg.MongoDatabaseName)

	serverApp.SetApp(handler.NewMarketHandler(marketService, cfg.Log, cfg.MaxPaginationLimit))
	serverApp.Run()
}
