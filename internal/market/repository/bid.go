package repository

import (
	"context"
	"errors"
	"fmt"

	marketerrors "gigmarket/internal/market/errors"
	"gigmarket/pkg/config"
	mongotx "gigmarket/pkg/db/mongo"
	"gigmarket/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	BidCollectionName = "Bids"
)

type BidRepository interface {
	// Create inserts a pending bid. A second pending bid by the same
	// performer on the same event returns ErrDuplicateBid.
	Create(ctx context.Context, bid *model.Bid) error
	FindByID(ctx context.Context, id string) (*model.Bid, error)
	FindByEvent(ctx context.Context, eventID string) ([]*model.Bid, error)
	FindByPerformer(ctx context.Context, performerID string, limit int, offset int64) ([]*model.Bid, error)
	CountByPerformer(ctx context.Context, performerID string) (int64, error)
	HasPending(ctx context.Context, eventID, performerID string) (bool, error)
	// SetStatus moves a bid from one status to another, or returns ErrGuardFailed.
	SetStatus(ctx context.Context, id string, from, to model.BidStatus) (*model.Bid, error)
	// RejectPending rejects every pending bid on the event except keepBidID.
	RejectPending(ctx context.Context, eventID, keepBidID string) (int64, error)
}

type mongoBidRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBidRepository(cfg *config.Config) BidRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBidRepository{
		cfg:        cfg,
		collection: db.Collection(BidCollectionName),
	}
}

func (r *mongoBidRepository) Create(ctx context.Context, bid *model.Bid) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	ts := now()
	bid.CreatedAt = ts
	bid.UpdatedAt = ts

	result, err := r.collection.InsertOne(ctx, bid)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return marketerrors.ErrDuplicateBid
		}
		return fmt.Errorf("failed to create bid: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		bid.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBidRepository) FindByID(ctx context.Context, id string) (*model.Bid, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var bid model.Bid
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&bid); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, marketerrors.ErrBidNotFound
		}
		return nil, fmt.Errorf("failed to find bid: %w", err)
	}
	return &bid, nil
}

func (r *mongoBidRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Bid, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bids: %w", err)
	}
	defer cursor.Close(ctx)

	bids := []*model.Bid{}
	if err = cursor.All(ctx, &bids); err != nil {
		return nil, fmt.Errorf("failed to decode bids: %w", err)
	}
	return bids, nil
}

func (r *mongoBidRepository) FindByEvent(ctx context.Context, eventID string) ([]*model.Bid, error) {
	opts := options.Find().SetSort(bson.D{{Key: "bid_amount", Value: 1}, {Key: "created_at", Value: 1}})
	return r.find(ctx, bson.M{"event_id": eventID}, opts)
}

func (r *mongoBidRepository) FindByPerformer(ctx context.Context, performerID string, limit int, offset int64) ([]*model.Bid, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)
	return r.find(ctx, bson.M{"performer_id": performerID}, opts)
}

func (r *mongoBidRepository) CountByPerformer(ctx context.Context, performerID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"performer_id": performerID})
	if err != nil {
		return 0, fmt.Errorf("failed to count bids: %w", err)
	}
	return count, nil
}

func (r *mongoBidRepository) HasPending(ctx context.Context, eventID, performerID string) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"event_id": eventID, "performer_id": performerID, "status": model.BidPending}
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check pending bids: %w", err)
	}
	return n > 0, nil
}

func (r *mongoBidRepository) SetStatus(ctx context.Context, id string, from, to model.BidStatus) (*model.Bid, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated model.Bid
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": now()}},
		opts,
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, marketerrors.ErrGuardFailed
		}
		return nil, fmt.Errorf("failed to update bid: %w", err)
	}
	return &updated, nil
}

func (r *mongoBidRepository) RejectPending(ctx context.Context, eventID, keepBidID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"event_id": eventID, "status": model.BidPending}
	if keepBidID != "" {
		oid, err := objectID(keepBidID)
		if err != nil {
			return 0, err
		}
		filter["_id"] = bson.M{"$ne": oid}
	}

	result, err := r.collection.UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{"status": model.BidRejected, "updated_at": now()},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to reject pending bids: %w", err)
	}
	return result.ModifiedCount, nil
}
