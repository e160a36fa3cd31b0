package repository

import (
	"testing"
	"time"

	"gigmarket/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestExpiredFilter(t *testing.T) {
	at := time.Date(2026, 5, 1, 15, 30, 0, 0, time.UTC)
	filter := expiredFilter(at)

	assert.Equal(t, bson.M{"$in": bson.A{model.EventOpen, model.EventClosed}}, filter["status"])
	assert.Contains(t, filter, "accepted_bid_id")
	assert.Nil(t, filter["accepted_bid_id"])

	branches, ok := filter["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, branches, 2)

	assert.Equal(t, bson.M{"bid_deadline": bson.M{"$lte": at}}, branches[0])
	assert.Equal(t, bson.M{
		"bid_deadline": nil,
		"event_date":   bson.M{"$lt": time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)},
	}, branches[1])
}

func TestBiddableFilter(t *testing.T) {
	at := time.Date(2026, 5, 1, 15, 30, 0, 0, time.UTC)
	filter := biddableFilter(at)

	assert.Equal(t, model.EventOpen, filter["status"])
	assert.Equal(t, bson.A{
		bson.M{"bid_deadline": bson.M{"$gt": at}},
		bson.M{
			"bid_deadline": nil,
			"event_date":   bson.M{"$gte": time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)},
		},
	}, filter["$or"])
}
