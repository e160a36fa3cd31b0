package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "gigmarket/internal/bookings/errors"
	"gigmarket/pkg/config"
	mongotx "gigmarket/pkg/db/mongo"
	"gigmarket/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByCustomer(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, error)
	CountByCustomer(ctx context.Context, customerID string) (int64, error)
	FindByPerformer(ctx context.Context, performerID string, limit int, offset int64) ([]*model.Booking, error)
	CountByPerformer(ctx context.Context, performerID string) (int64, error)
	// ApplyStatusChange writes change only while status and version still
	// match. A mismatch returns ErrVersionConflict.
	ApplyStatusChange(ctx context.Context, id string, change model.StatusChange) (*model.Booking, error)
	ConfirmPerformer(ctx context.Context, id string) (*model.Booking, error)
	ConfirmCompletion(ctx context.Context, id string) (*model.Booking, error)
	// ReleaseEscrow moves a completed, unsettled booking to released. When
	// the guard fails it returns ErrGuardFailed.
	ReleaseEscrow(ctx context.Context, id string, at time.Time) (*model.Booking, error)
	// HoldEscrow moves escrow to status when the current escrow status is one
	// of from and the booking is neither cancelled nor refunded.
	HoldEscrow(ctx context.Context, id string, status model.EscrowStatus, from []model.EscrowStatus) (*model.Booking, error)
	DueForRelease(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error)
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	ts := now()
	booking.CreatedAt = ts
	booking.UpdatedAt = ts

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var booking model.Booking
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "event_date", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) FindByCustomer(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, error) {
	return r.find(ctx, bson.M{"customer_id": customerID}, limit, offset)
}

func (r *mongoBookingRepository) CountByCustomer(ctx context.Context, customerID string) (int64, error) {
	return r.count(ctx, bson.M{"customer_id": customerID})
}

func (r *mongoBookingRepository) FindByPerformer(ctx context.Context, performerID string, limit int, offset int64) ([]*model.Booking, error) {
	return r.find(ctx, bson.M{"performer_id": performerID}, limit, offset)
}

func (r *mongoBookingRepository) CountByPerformer(ctx context.Context, performerID string) (int64, error) {
	return r.count(ctx, bson.M{"performer_id": performerID})
}

func (r *mongoBookingRepository) ApplyStatusChange(ctx context.Context, id string, change model.StatusChange) (*model.Booking, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"status":     change.To,
		"updated_at": change.At,
	}
	if change.CompletionDate != nil {
		set["completion_date"] = *change.CompletionDate
	}
	if change.AutoReleaseDate != nil {
		set["auto_release_date"] = *change.AutoReleaseDate
	}
	if change.To == model.BookingCancelled {
		set["cancellation_date"] = change.At
		set["cancellation_reason"] = change.CancellationReason
		set["cancelled_by"] = change.CancelledBy
	}
	if change.EscrowStatus != "" {
		set["escrow_status"] = change.EscrowStatus
	}

	filter := bson.M{"_id": oid, "status": change.From, "version": change.Version}
	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}

	updated, err := r.findOneAndUpdate(ctx, filter, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.missOrConflict(ctx, oid, bookingserrors.ErrVersionConflict)
	}
	return updated, err
}

func (r *mongoBookingRepository) ConfirmPerformer(ctx context.Context, id string) (*model.Booking, error) {
	return r.setFlag(ctx, id, "performer_confirmed")
}

func (r *mongoBookingRepository) ConfirmCompletion(ctx context.Context, id string) (*model.Booking, error) {
	return r.setFlag(ctx, id, "customer_confirmed_completion")
}

func (r *mongoBookingRepository) setFlag(ctx context.Context, id, field string) (*model.Booking, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	updated, err := r.findOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{field: true, "updated_at": now()},
		"$inc": bson.M{"version": 1},
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, bookingserrors.ErrNotFound
	}
	return updated, err
}

func (r *mongoBookingRepository) ReleaseEscrow(ctx context.Context, id string, at time.Time) (*model.Booking, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"_id":           oid,
		"status":        model.BookingCompleted,
		"escrow_status": bson.M{"$nin": bson.A{model.EscrowReleased, model.EscrowRefunded}},
	}
	update := bson.M{
		"$set": bson.M{"escrow_status": model.EscrowReleased, "payout_date": at, "updated_at": at},
		"$inc": bson.M{"version": 1},
	}

	updated, err := r.findOneAndUpdate(ctx, filter, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.missOrConflict(ctx, oid, bookingserrors.ErrGuardFailed)
	}
	return updated, err
}

func (r *mongoBookingRepository) HoldEscrow(ctx context.Context, id string, status model.EscrowStatus, from []model.EscrowStatus) (*model.Booking, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"_id":           oid,
		"status":        bson.M{"$nin": bson.A{model.BookingCancelled, model.BookingRefunded}},
		"escrow_status": bson.M{"$in": from},
	}
	update := bson.M{
		"$set": bson.M{"escrow_status": status, "updated_at": now()},
		"$inc": bson.M{"version": 1},
	}

	updated, err := r.findOneAndUpdate(ctx, filter, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.missOrConflict(ctx, oid, bookingserrors.ErrGuardFailed)
	}
	return updated, err
}

func (r *mongoBookingRepository) DueForRelease(ctx context.Context, at time.Time, limit int) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":            model.BookingCompleted,
		"escrow_status":     bson.M{"$nin": bson.A{model.EscrowReleased, model.EscrowRefunded}},
		"auto_release_date": bson.M{"$lte": at},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "auto_release_date", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings due for release: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated model.Booking
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	return &updated, nil
}

// missOrConflict tells a missing booking apart from a failed guard
func (r *mongoBookingRepository) missOrConflict(ctx context.Context, oid primitive.ObjectID, conflict error) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	if n == 0 {
		return bookingserrors.ErrNotFound
	}
	return conflict
}
