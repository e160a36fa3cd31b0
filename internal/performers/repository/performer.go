package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	performerserrors "gigmarket/internal/performers/errors"
	"gigmarket/pkg/config"
	mongotx "gigmarket/pkg/db/mongo"
	"gigmarket/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Performers"
)

type PerformerRepository interface {
	Create(ctx context.Context, performer *model.Performer) error
	FindByID(ctx context.Context, id string) (*model.Performer, error)
	FindByAccount(ctx context.Context, accountID string) (*model.Performer, error)
	FindAll(ctx context.Context, filter model.PerformerFilter, limit int, offset int64) ([]*model.Performer, error)
	Count(ctx context.Context, filter model.PerformerFilter) (int64, error)
	// Update writes the editable profile fields and recomputes the achievement.
	Update(ctx context.Context, id string, performer *model.Performer) (*model.Performer, error)
	SetStatus(ctx context.Context, id string, status model.PerformerStatus) (*model.Performer, error)
	SetVerified(ctx context.Context, id string, verified bool) (*model.Performer, error)
	// IncrementCompleted atomically bumps completed_bookings and recomputes the achievement.
	IncrementCompleted(ctx context.Context, id string) (*model.Performer, error)
}

type mongoPerformerRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPerformerRepository(cfg *config.Config) PerformerRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPerformerRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoPerformerRepository) Create(ctx context.Context, performer *model.Performer) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	performer.CreatedAt = now
	performer.UpdatedAt = now
	performer.RefreshAchievement()

	result, err := r.collection.InsertOne(ctx, performer)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return performerserrors.ErrDuplicateAccount
		}
		return fmt.Errorf("failed to create performer: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		performer.ID = oid.Hex()
	}
	return nil
}

func (r *mongoPerformerRepository) FindByID(ctx context.Context, id string) (*model.Performer, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", performerserrors.ErrInvalidID, id)
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *mongoPerformerRepository) FindByAccount(ctx context.Context, accountID string) (*model.Performer, error) {
	return r.findOne(ctx, bson.M{"account_id": accountID})
}

func (r *mongoPerformerRepository) findOne(ctx context.Context, filter bson.M) (*model.Performer, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var performer model.Performer
	if err := r.collection.FindOne(ctx, filter).Decode(&performer); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, performerserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find performer: %w", err)
	}
	return &performer, nil
}

func filterDocument(filter model.PerformerFilter) bson.M {
	doc := bson.M{}
	if filter.Status != "" {
		doc["status"] = filter.Status
	}
	if filter.Tier != "" {
		doc["tier"] = filter.Tier
	}
	if filter.Verified != nil {
		doc["verified"] = *filter.Verified
	}
	return doc
}

func (r *mongoPerformerRepository) FindAll(ctx context.Context, filter model.PerformerFilter, limit int, offset int64) ([]*model.Performer, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "score", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filterDocument(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find performers: %w", err)
	}
	defer cursor.Close(ctx)

	performers := []*model.Performer{}
	if err = cursor.All(ctx, &performers); err != nil {
		return nil, fmt.Errorf("failed to decode performers: %w", err)
	}
	return performers, nil
}

func (r *mongoPerformerRepository) Count(ctx context.Context, filter model.PerformerFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filterDocument(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count performers: %w", err)
	}
	return count, nil
}

func (r *mongoPerformerRepository) Update(ctx context.Context, id string, performer *model.Performer) (*model.Performer, error) {
	return r.updatePipeline(ctx, id, bson.M{
		"display_name":         performer.DisplayName,
		"profile_ref":          performer.ProfileRef,
		"hourly_rate":          performer.HourlyRate,
		"deposit_percentage":   performer.DepositPercentage,
		"tier":                 performer.Tier,
		"rating":               performer.Rating,
		"profile_completeness": performer.ProfileCompleteness,
	})
}

func (r *mongoPerformerRepository) SetStatus(ctx context.Context, id string, status model.PerformerStatus) (*model.Performer, error) {
	return r.updatePipeline(ctx, id, bson.M{"status": status})
}

func (r *mongoPerformerRepository) SetVerified(ctx context.Context, id string, verified bool) (*model.Performer, error) {
	return r.updatePipeline(ctx, id, bson.M{"verified": verified})
}

func (r *mongoPerformerRepository) IncrementCompleted(ctx context.Context, id string) (*model.Performer, error) {
	return r.updatePipeline(ctx, id, bson.M{
		"completed_bookings": bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$completed_bookings", 0}}, 1}},
	})
}

// updatePipeline applies set and then recomputes score and level from the
// stored values in the same write.
func (r *mongoPerformerRepository) updatePipeline(ctx context.Context, id string, set bson.M) (*model.Performer, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", performerserrors.ErrInvalidID, id)
	}

	set["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)
	pipeline := append(mongo.Pipeline{{{Key: "$set", Value: set}}}, achievementStages()...)

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated model.Performer
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, pipeline, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, performerserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update performer: %w", err)
	}
	return &updated, nil
}

func achievementStages() mongo.Pipeline {
	score := bson.M{"$round": bson.A{
		bson.M{"$add": bson.A{
			bson.M{"$multiply": bson.A{"$completed_bookings", 10}},
			bson.M{"$multiply": bson.A{"$rating", 20}},
			bson.M{"$divide": bson.A{"$profile_completeness", 2}},
		}},
		2,
	}}

	branches := bson.A{}
	for _, t := range model.AchievementThresholds {
		branches = append(branches, bson.M{
			"case": bson.M{"$gte": bson.A{"$score", t.Min}},
			"then": t.Level,
		})
	}
	level := bson.M{"$switch": bson.M{"branches": branches, "default": model.LevelBronze}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"score": score}}},
		{{Key: "$set", Value: bson.M{"achievement_level": level}}},
	}
}
