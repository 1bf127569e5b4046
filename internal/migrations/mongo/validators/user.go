package validators

import "go.mongodb.org/mongo-driver/bson"

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"username", "email", "role", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"username":   bson.M{"bsonType": "string", "minLength": 2, "maxLength": 50},
			"email":      bson.M{"bsonType": "string", "maxLength": 254},
			"phone":      bson.M{"bsonType": "string"},
			"role":       bson.M{"bsonType": "string", "enum": []string{"user", "owner", "admin"}},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
