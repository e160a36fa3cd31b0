package mongo

import (
	"context"
	"fmt"
	"time"

	apperrors "gigmarket/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// TransactionFunc runs inside a transaction. Repositories called with ctx
// join the session.
type TransactionFunc func(ctx context.Context) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
	}
}

func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	})

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// WithTimeout bounds ctx unless it belongs to a session, whose deadline is
// owned by the transaction.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// IsDuplicateKey reports a unique index violation
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
