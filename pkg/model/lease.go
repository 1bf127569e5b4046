package model

import "time"

// Lease is a named, expiring lock held by one process. The unique _id makes
// acquisition atomic: a second holder hits a duplicate key.
type Lease struct {
	ID         string    `bson:"_id" json:"id"`
	Holder     string    `bson:"holder" json:"holder"`
	ExpiresAt  time.Time `bson:"expires_at" json:"expires_at"`
	AcquiredAt time.Time `bson:"acquired_at" json:"acquired_at"`
}
