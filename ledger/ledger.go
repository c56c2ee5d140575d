// Package ledger applies signed point deltas to account balances. Balances
// never go below zero.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// Store issues one atomic, server side increment and returns the clamped
// balance. It must never read, compute and write back.
type Store interface {
	IncrementPoints(ctx context.Context, id primitive.ObjectID, delta int) (int, error)
}

// Ledger is the only writer of account points
type Ledger struct {
	store Store
}

// New returns a Ledger backed by store
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// ApplyDelta adds delta to the user's points, clamped at zero, and returns
// the new balance. A missing user wraps models.ErrNotFound. Callers must
// apply each logical event once.
func (l *Ledger) ApplyDelta(ctx context.Context, userID primitive.ObjectID, delta int) (int, error) {
	balance, err := l.store.IncrementPoints(ctx, userID, delta)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return 0, fmt.Errorf("ledger user %s: %w", userID.Hex(), err)
		}
		return 0, fmt.Errorf("failed to apply %+d points to %s: %w", delta, userID.Hex(), err)
	}
	zap.S().Debugw("applied point delta",
		"userId", userID.Hex(),
		"delta", delta,
		"balance", balance)
	return balance, nil
}

// Clamp is the balance rule every Store implements: balance plus delta,
// floored at zero.
func Clamp(balance, delta int) int {
	if next := balance + delta; next > 0 {
		return next
	}
	return 0
}
