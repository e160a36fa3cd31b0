package validators

import "go.mongodb.org/mongo-driver/bson"

var MarketEventValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"customer_id",
			"title",
			"description",
			"event_date",
			"status",
			"total_bids",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"customer_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 200,
			},

			"description": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 5000,
			},

			"event_date": bson.M{
				"bsonType": "date",
			},

			"bid_deadline": bson.M{
				"bsonType": []string{"date", "null"},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"open", "closed", "filled", "expired", "cancelled"},
			},

			"total_bids": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"accepted_bid_id": bson.M{
				"bsonType": []string{"string", "null"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var BidValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"event_id",
			"performer_id",
			"bid_amount",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"event_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"performer_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"bid_amount": bson.M{
				"bsonType":         "number",
				"exclusiveMinimum": true,
				"minimum":          0,
			},

			"message": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"pending", "accepted", "rejected", "withdrawn"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
