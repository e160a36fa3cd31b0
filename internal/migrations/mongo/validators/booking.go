package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"performer_id",
			"customer_id",
			"title",
			"location",
			"event_date",
			"total_amount",
			"status",
			"escrow_status",
			"version",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"performer_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"customer_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"source": bson.M{
				"bsonType": "string",
				"enum":     []string{"direct", "market"},
			},

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 200,
			},

			"location": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 300,
			},

			"event_date": bson.M{
				"bsonType": "date",
			},

			"total_amount": bson.M{
				"bsonType":         "number",
				"exclusiveMinimum": true,
				"minimum":          0,
			},

			"deposit_amount":    bson.M{"bsonType": "number", "minimum": 0},
			"commission_amount": bson.M{"bsonType": "number", "minimum": 0},
			"payout_amount":     bson.M{"bsonType": "number", "minimum": 0},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"completed",
					"cancelled",
					"refunded",
					"disputed",
				},
			},

			"escrow_status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"held",
					"full_held",
					"released",
					"refunded",
				},
			},

			"version": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
