package validators

import "go.mongodb.org/mongo-driver/bson"

var PerformerValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"account_id",
			"display_name",
			"hourly_rate",
			"deposit_percentage",
			"tier",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"account_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"display_name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"hourly_rate": bson.M{
				"bsonType":         "number",
				"exclusiveMinimum": true,
				"minimum":          0,
			},

			"deposit_percentage": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  10,
				"maximum":  100,
			},

			"tier": bson.M{
				"bsonType": "string",
				"enum":     []string{"free", "pro", "featured"},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"pending", "approved", "suspended", "rejected"},
			},

			"verified": bson.M{
				"bsonType": "bool",
			},

			"completed_bookings": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"rating": bson.M{
				"bsonType": "number",
				"minimum":  0,
				"maximum":  5,
			},

			"profile_completeness": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
				"maximum":  100,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
