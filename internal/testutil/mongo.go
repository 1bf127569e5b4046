// Package testutil holds helpers for tests that need a real MongoDB.
package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
	migrations "turfbook/internal/migrations/mongo"
	"turfbook/pkg/config"
	"turfbook/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	EnvTestMongoURI   = "TEST_MONGO_URI"
	ConnectionTimeout = 10 * time.Second
	OperationTimeout  = 5 * time.Second
)

// MongoHelper owns a throwaway database with every collection, validator
// and index the services expect.
type MongoHelper struct {
	Client   *mongo.Client
	Database *mongo.Database
	DBName   string
}

// NewMongoHelper connects to TEST_MONGO_URI, migrates a fresh database and
// drops it when the test ends. The test is skipped when the variable is
// unset.
func NewMongoHelper(t *testing.T) *MongoHelper {
	t.Helper()

	mongoURI := os.Getenv(EnvTestMongoURI)
	if mongoURI == "" {
		t.Skipf("%s not set, skipping Mongo integration test", EnvTestMongoURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	dbName := "turfbook_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	h := &MongoHelper{
		Client:   client,
		Database: client.Database(dbName),
		DBName:   dbName,
	}
	t.Cleanup(func() { h.close(t) })

	if err := migrations.RunMigration(ctx, h.Database, logger.Discard()); err != nil {
		t.Fatalf("failed to migrate %s: %v", dbName, err)
	}
	return h
}

// Config is the minimal configuration the Mongo repositories read.
func (m *MongoHelper) Config() *config.Config {
	return &config.Config{
		Log:          logger.Discard(),
		ReadTimeout:  OperationTimeout,
		WriteTimeout: OperationTimeout,
	}
}

// CountDocuments returns the number of documents in a collection.
func (m *MongoHelper) CountDocuments(t *testing.T, collectionName string, filter any) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), OperationTimeout)
	defer cancel()

	count, err := m.Database.Collection(collectionName).CountDocuments(ctx, filter)
	if err != nil {
		t.Fatalf("failed to count documents in %s: %v", collectionName, err)
	}
	return count
}

func (m *MongoHelper) close(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), OperationTimeout)
	defer cancel()

	if err := m.Database.Drop(ctx); err != nil {
		t.Logf("warning: failed to drop %s: %v", m.DBName, err)
	}
	if err := m.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}
