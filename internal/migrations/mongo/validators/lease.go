package validators

import "go.mongodb.org/mongo-driver/bson"

var LeaseValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "holder", "expires_at"},
		"properties": bson.M{
			"_id":         bson.M{"bsonType": "string"},
			"holder":      bson.M{"bsonType": "string", "minLength": 1},
			"expires_at":  bson.M{"bsonType": "date"},
			"acquired_at": bson.M{"bsonType": "date"},
		},
	},
}
