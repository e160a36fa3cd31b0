package main

import (
	"gigmarket/internal/performers/handler"
	"gigmarket/internal/performers/repository"
	"gigmarket/internal/performers/service"
	"gigmarket/internal/performers/validator"
	"gigmarket/pkg/app"
	"gigmarket/pkg/config"
)

const ServiceName = "performers"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Performers service")
	performerService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewPerformerHandler(performerService, cfg.Log, cfg.MaxPaginationLimit))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.PerformerService {
	performerValidator := validator.NewPerformerValidator(cfg.Log)
	performerRepo := repository.NewMongoPerformerRepository(cfg)
	performerService := service.NewPerformerService(
		performerRepo,
		performerValidator,
		app.PerformerCache(cfg),
		cfg,
	)

	cfg.Log.Info("Performer service initialized", "database", cfg.MongoDatabaseName)
	return performerService
}
