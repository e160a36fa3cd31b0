package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gigmarket/internal/migrations/mongo/validators"
	"gigmarket/pkg/logger"
)

var (
	PerformersIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "tier", Value: 1},
			{Key: "score", Value: -1},
		}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "event_date", Value: -1}}},
		{Keys: bson.D{{Key: "performer_id", Value: 1}, {Key: "event_date", Value: -1}}},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "escrow_status", Value: 1},
			{Key: "auto_release_date", Value: 1},
		}},
	}

	MarketEventsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "bid_deadline", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "event_date", Value: 1}}},
	}

	BidsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "performer_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{
			Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "performer_id", Value: 1}},
			Options: options.Index().
				SetName("one_pending_bid_per_performer").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": "pending"}),
		},
	}
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

var collections = map[string]collectionDef{
	"Performers": {
		Indexes:   PerformersIndexes,
		Validator: validators.PerformerValidator,
	},
	"Bookings": {
		Indexes:   BookingsIndexes,
		Validator: validators.BookingValidator,
	},
	"Market_events": {
		Indexes:   MarketEventsIndexes,
		Validator: validators.MarketEventValidator,
	},
	"Bids": {
		Indexes:   BidsIndexes,
		Validator: validators.BidValidator,
	},
}

// RunMigration creates missing collections, refreshes validators on existing
// ones and ensures every index. It is safe to run repeatedly.
func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully", "collections", len(collections))
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	names, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", names)
	return nil
}
