package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	bookingsrepo "gigmarket/internal/bookings/repository"
	marketrepo "gigmarket/internal/market/repository"
	performersrepo "gigmarket/internal/performers/repository"
)

func TestCollectionsMatchRepositories(t *testing.T) {
	for _, name := range []string{
		performersrepo.CollectionName,
		bookingsrepo.CollectionName,
		marketrepo.EventCollectionName,
		marketrepo.BidCollectionName,
	} {
		def, ok := collections[name]
		require.True(t, ok, "missing migration for %s", name)
		assert.NotEmpty(t, def.Indexes, name)
		assert.Contains(t, def.Validator, "$jsonSchema", name)
	}
}

func TestPendingBidIndex(t *testing.T) {
	var unique *mongoIndex
	for _, idx := range BidsIndexes {
		if idx.Options != nil && idx.Options.Unique != nil && *idx.Options.Unique {
			unique = &mongoIndex{keys: idx.Keys.(bson.D), partial: idx.Options.PartialFilterExpression}
		}
	}
	require.NotNil(t, unique)
	assert.Equal(t, "event_id", unique.keys[0].Key)
	assert.Equal(t, "performer_id", unique.keys[1].Key)
	assert.Equal(t, bson.M{"status": "pending"}, unique.partial)
}

func TestPerformerAccountIsUnique(t *testing.T) {
	idx := PerformersIndexes[0]
	require.NotNil(t, idx.Options)
	require.NotNil(t, idx.Options.Unique)
	assert.True(t, *idx.Options.Unique)
	assert.Equal(t, "account_id", idx.Keys.(bson.D)[0].Key)
}

type mongoIndex struct {
	keys    bson.D
	partial any
}
