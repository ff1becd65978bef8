package port

import (
	"context"
	"errors"
	"time"

	"github.com/alpakasoelde/dashboard-api/internal/domain/entity"
)

var (
	// ErrAlreadyExists is returned when an insert hits an existing row key
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrPreconditionFailed is returned when a conditional update sees a
	// different etag than the one the caller read
	ErrPreconditionFailed = errors.New("etag precondition failed")

	// ErrNotFound is returned when a keyed operation finds no row
	ErrNotFound = errors.New("entity not found")
)

// VoucherRepository defines persistence operations for Voucher
type VoucherRepository interface {
	// GetAll returns every stored voucher in no particular order
	GetAll(ctx context.Context) ([]*entity.Voucher, error)

	// GetByID returns nil, nil when the voucher does not exist
	GetByID(ctx context.Context, id string) (*entity.Voucher, error)

	// Create inserts a new voucher and fails with ErrAlreadyExists on a duplicate id.
	// On success the voucher's ETag and Timestamp are set.
	Create(ctx context.Context, voucher *entity.Voucher) error

	// Update replaces the voucher only if its stored etag still equals voucher.ETag,
	// otherwise ErrPreconditionFailed. On success a fresh ETag is set.
	Update(ctx context.Context, voucher *entity.Voucher) error
}

// MessageRepository defines persistence operations for Message
type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error

	// List returns all messages, newest first
	List(ctx context.Context) ([]*entity.Message, error)

	// Delete fails with ErrNotFound when no message has the id
	Delete(ctx context.Context, id string) error

	// CountOlderThan counts messages written before the cutoff
	CountOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// AlpakaRepository defines persistence operations for Alpaka
type AlpakaRepository interface {
	// List returns all alpakas ordered by name
	List(ctx context.Context) ([]*entity.Alpaka, error)

	// GetByID returns nil, nil when the alpaka does not exist
	GetByID(ctx context.Context, id string) (*entity.Alpaka, error)

	// Create assigns a new id when alpaka.ID is empty
	Create(ctx context.Context, alpaka *entity.Alpaka) error

	// Update replaces the alpaka only if its stored etag still equals alpaka.ETag,
	// otherwise ErrPreconditionFailed
	Update(ctx context.Context, alpaka *entity.Alpaka) error

	// Names maps lower-cased alpaka ids to names
	Names(ctx context.Context) (map[string]string, error)
}

// EventRepository defines persistence operations for Event
type EventRepository interface {
	// GetAll returns every stored event row in insertion order
	GetAll(ctx context.Context) ([]*entity.Event, error)

	// CreateAll inserts the rows of one event atomically
	CreateAll(ctx context.Context, events []*entity.Event) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
