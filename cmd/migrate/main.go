package main

import (
	"context"
	"time"

	mongoMigration "gigmarket/internal/migrations/mongo"
	"gigmarket/pkg/config"
)

const JobName = "mongo-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()
	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.Log.Info("Starting Mongo migration job")
	defer cfg.GracefulShutdown()

	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	if err := mongoMigration.RunMigration(ctx, db, cfg.Log); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}
