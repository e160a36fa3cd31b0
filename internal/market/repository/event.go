package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

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
	EventCollectionName = "Market_events"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.MarketEvent) error
	FindByID(ctx context.Context, id string) (*model.MarketEvent, error)
	FindAll(ctx context.Context, filter model.MarketEventFilter, limit int, offset int64) ([]*model.MarketEvent, error)
	Count(ctx context.Context, filter model.MarketEventFilter) (int64, error)
	// IncrementBids bumps total_bids on an open event whose deadline is
	// after now. Otherwise it returns ErrEventNotOpen.
	IncrementBids(ctx context.Context, id string, now time.Time) error
	// Fill marks an open or closed event without an accepted bid as filled.
	Fill(ctx context.Context, id, bidID, bookingID string) (*model.MarketEvent, error)
	// SetStatus moves an event without an accepted bid from one of from to status.
	SetStatus(ctx context.Context, id string, from []model.MarketEventStatus, status model.MarketEventStatus) (*model.MarketEvent, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*model.MarketEvent, error)
}

type mongoEventRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoEventRepository(cfg *config.Config) EventRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoEventRepository{
		cfg:        cfg,
		collection: db.Collection(EventCollectionName),
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", marketerrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoEventRepository) Create(ctx context.Context, event *model.MarketEvent) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	ts := now()
	event.CreatedAt = ts
	event.UpdatedAt = ts

	result, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to create market event: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		event.ID = oid.Hex()
	}
	return nil
}

func (r *mongoEventRepository) FindByID(ctx context.Context, id string) (*model.MarketEvent, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var event model.MarketEvent
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&event); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, marketerrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to find market event: %w", err)
	}
	return &event, nil
}

func eventFilter(filter model.MarketEventFilter) bson.M {
	doc := bson.M{}
	if filter.Status != "" {
		doc["status"] = filter.Status
	}
	if filter.CustomerID != "" {
		doc["customer_id"] = filter.CustomerID
	}
	return doc
}

func (r *mongoEventRepository) FindAll(ctx context.Context, filter model.MarketEventFilter, limit int, offset int64) ([]*model.MarketEvent, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	return r.find(ctx, eventFilter(filter), opts)
}

func (r *mongoEventRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.MarketEvent, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find market events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []*model.MarketEvent{}
	if err = cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode market events: %w", err)
	}
	return events, nil
}

func (r *mongoEventRepository) Count(ctx context.Context, filter model.MarketEventFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, eventFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count market events: %w", err)
	}
	return count, nil
}

func (r *mongoEventRepository) IncrementBids(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	filter := biddableFilter(at)
	filter["_id"] = oid
	update := bson.M{
		"$inc": bson.M{"total_bids": 1},
		"$set": bson.M{"updated_at": now()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to increment bids: %w", err)
	}
	if result.MatchedCount == 0 {
		return marketerrors.ErrEventNotOpen
	}
	return nil
}

func (r *mongoEventRepository) Fill(ctx context.Context, id, bidID, bookingID string) (*model.MarketEvent, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"_id":             oid,
		"status":          bson.M{"$in": bson.A{model.EventOpen, model.EventClosed}},
		"accepted_bid_id": nil,
	}
	update := bson.M{"$set": bson.M{
		"status":          model.EventFilled,
		"accepted_bid_id": bidID,
		"booking_id":      bookingID,
		"updated_at":      now(),
	}}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *mongoEventRepository) SetStatus(ctx context.Context, id string, from []model.MarketEventStatus, status model.MarketEventStatus) (*model.MarketEvent, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"_id":             oid,
		"status":          bson.M{"$in": from},
		"accepted_bid_id": nil,
	}
	update := bson.M{"$set": bson.M{"status": status, "updated_at": now()}}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *mongoEventRepository) FindExpired(ctx context.Context, at time.Time, limit int) ([]*model.MarketEvent, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "event_date", Value: 1}}).
		SetLimit(int64(limit))

	return r.find(ctx, expiredFilter(at), opts)
}

// biddableFilter matches open events still taking bids at at. It is the
// complement of the deadline branches of expiredFilter.
func biddableFilter(at time.Time) bson.M {
	nextDay := model.DateOnly(at).AddDate(0, 0, 1)
	return bson.M{
		"status": model.EventOpen,
		"$or": bson.A{
			bson.M{"bid_deadline": bson.M{"$gt": at}},
			bson.M{"bid_deadline": nil, "event_date": bson.M{"$gte": nextDay}},
		},
	}
}

// expiredFilter matches undecided events whose bidding closed at or before at.
// Events without a bid deadline close when their event day starts.
func expiredFilter(at time.Time) bson.M {
	nextDay := model.DateOnly(at).AddDate(0, 0, 1)
	return bson.M{
		"status":          bson.M{"$in": bson.A{model.EventOpen, model.EventClosed}},
		"accepted_bid_id": nil,
		"$or": bson.A{
			bson.M{"bid_deadline": bson.M{"$lte": at}},
			bson.M{"bid_deadline": nil, "event_date": bson.M{"$lt": nextDay}},
		},
	}
}

func (r *mongoEventRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*model.MarketEvent, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated model.MarketEvent
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, marketerrors.ErrGuardFailed
		}
		return nil, fmt.Errorf("failed to update market event: %w", err)
	}
	return &updated, nil
}
