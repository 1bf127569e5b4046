package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"turf_id",
			"user_id",
			"slot_id",
			"date",
			"status",
			"payment_status",
			"active_slot",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"turf_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"slot_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 32,
			},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"start_time": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{2}:\d{2}$`,
			},

			"end_time": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{2}:\d{2}$`,
			},

			"number_of_players": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
				"maximum":  100,
			},

			"total_price": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"cancelled",
				},
			},

			"payment_status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"paid",
					"failed",
					"waived",
				},
			},

			"active_slot": bson.M{
				"bsonType": "bool",
			},

			"hold_expires_at": bson.M{
				"bsonType": "date",
			},

			"cancel_reason": bson.M{
				"bsonType": "string",
				"enum": []string{
					"payment_failed",
					"hold_expired",
					"cancelled_by_user",
					"cancelled_by_owner",
					"cancelled_by_admin",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
