package mongo

import (
	"context"
	"errors"
	"fmt"
	apperrors "turfbook/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.mongodb.org/mongo-driver/x/mongo/driver"
)

// TransactionFunc runs inside a session. Repository calls made with sessCtx
// join the transaction.
type TransactionFunc func(sessCtx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
	opts   *options.TransactionOptions
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
		opts: options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority()),
	}
}

func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "Booking store is temporarily unavailable", 503)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	}, m.opts)

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		if isTransient(err) {
			return apperrors.Wrap(err, apperrors.CodeUnavailable, "Booking store is temporarily unavailable", 503)
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

func isTransient(err error) bool {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var le mongo.LabeledError
	return errors.As(err, &le) && le.HasErrorLabel(driver.TransientTransactionError)
}

// NewSessionContext lets callers outside a real session (tests, no-op
// managers) satisfy TransactionFunc.
func NewSessionContext(ctx context.Context) mongo.SessionContext {
	return mongo.NewSessionContext(ctx, nil)
}
