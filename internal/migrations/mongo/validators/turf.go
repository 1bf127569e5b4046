package validators

import "go.mongodb.org/mongo-driver/bson"

var TurfValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"owner_id", "name", "city", "address", "price_per_hour", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"owner_id":       bson.M{"bsonType": "string", "minLength": 24, "maxLength": 24},
			"name":           bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"city":           bson.M{"bsonType": "string", "minLength": 2, "maxLength": 50},
			"address":        bson.M{"bsonType": "string", "minLength": 2, "maxLength": 200},
			"price_per_hour": bson.M{"bsonType": []string{"double", "int", "long", "decimal"}, "minimum": 0},
			"max_players":    bson.M{"bsonType": []string{"int", "long"}, "minimum": 0, "maximum": 100},
			"time_zone":      bson.M{"bsonType": "string"},
			"slots": bson.M{
				"bsonType": "array",
				"maxItems": 48,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"id", "start_time", "end_time"},
					"properties": bson.M{
						"id":         bson.M{"bsonType": "string", "minLength": 1},
						"start_time": bson.M{"bsonType": "string", "pattern": `^\d{2}:\d{2}$`},
						"end_time":   bson.M{"bsonType": "string", "pattern": `^\d{2}:\d{2}$`},
					},
				},
			},
			"blocked_slots": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"date", "slot_id"},
				},
			},
			"deleted_at": bson.M{"bsonType": "date"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
