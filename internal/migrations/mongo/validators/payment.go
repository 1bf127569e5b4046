package validators

import "go.mongodb.org/mongo-driver/bson"

var PaymentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"booking_id", "amount", "status", "transaction_id", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"booking_id":     bson.M{"bsonType": "string", "minLength": 24, "maxLength": 24},
			"amount":         bson.M{"bsonType": []string{"double", "int", "long", "decimal"}, "minimum": 0},
			"method":         bson.M{"bsonType": "string"},
			"status":         bson.M{"bsonType": "string", "enum": []string{"success", "pending"}},
			"transaction_id": bson.M{"bsonType": "string", "minLength": 1, "maxLength": 128},
			"created_at":     bson.M{"bsonType": "date"},
		},
	},
}
