package transaction

import (
	"context"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	// contextKeyTransaction is the key for storing a transaction in context
	contextKeyTransaction contextKey = "litemap:transaction"
)

// FromContext retrieves a transaction from the context
// Returns the transaction and true if found, nil and false otherwise
func FromContext(ctx context.Context) (*Transaction, bool) {
	tx, ok := ctx.Value(contextKeyTransaction).(*Transaction)
	return tx, ok
}

// Active returns the transaction carried by ctx if it has not finished yet
func Active(ctx context.Context) (*Transaction, bool) {
	tx, ok := FromContext(ctx)
	if !ok || tx.IsDone() {
		return nil, false
	}
	return tx, true
}

// WithContext returns a new context with the transaction embedded
func WithContext(ctx context.Context, tx *Transaction) context.Context {
	return context.WithValue(ctx, contextKeyTransaction, tx)
}

// MustFromContext retrieves an active transaction from the context.
// Panics if there is none; use only inside WithTransaction callbacks.
func MustFromContext(ctx context.Context) *Transaction {
	tx, ok := Active(ctx)
	if !ok {
		panic("no active transaction found in context")
	}
	return tx
}
