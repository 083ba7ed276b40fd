// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/pftrack/pftrack/internal/domain"
)

// TransactionSource loads bank transactions from somewhere, typically
// the CSV exports in the data directory.
type TransactionSource interface {
	LoadAll() ([]*domain.Transaction, error)
}

// ManualTransactions persists manually entered transactions.
type ManualTransactions interface {
	All() []*domain.Transaction
	Get(id string) (*domain.Transaction, error)
	Add(tx *domain.Transaction) (*domain.Transaction, error)
	Update(tx *domain.Transaction) (*domain.Transaction, error)
	Delete(id string) error
}

// AlertSink delivers alert batches to an external receiver.
type AlertSink interface {
	Send(ctx context.Context, alerts []domain.Alert) error
}

// Cache provides generic caching with TTL. Flush drops every entry at
// once, for when the underlying source data has changed wholesale.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Flush()
}
