package databases

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Transactor runs fn as one logical unit of work. Writes made through the
// ctx handed to fn belong to the unit.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewTransactor returns a Transactor backed by multi document transactions
// when enabled (requires a replica set), otherwise one that runs fn
// directly. Callers order their writes so that the sequential variant can be
// retried safely.
func NewTransactor(client ClientHelper, enabled bool) Transactor {
	if !enabled || client == nil {
		return Sequential{}
	}
	return &sessionTransactor{client: client}
}

type sessionTransactor struct {
	client ClientHelper
}

func (t *sessionTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Sequential runs the unit of work without a transaction
type Sequential struct{}

// WithTransaction calls fn with ctx
func (Sequential) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
