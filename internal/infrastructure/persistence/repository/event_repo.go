package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	"github.com/alpakasoelde/dashboard-api/internal/domain/entity"
	"github.com/alpakasoelde/dashboard-api/internal/infrastructure/persistence/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventRepository implements port.EventRepository
type EventRepository struct {
	db        *sql.DB
	txManager port.TransactionManager
	logger    *zap.Logger
	now       func() time.Time
}

// NewEventRepository creates a new event repository. The rows of one event
// are written inside a transaction of txManager.
func NewEventRepository(db *sql.DB, txManager port.TransactionManager, logger *zap.Logger) port.EventRepository {
	return &EventRepository{
		db:        db,
		txManager: txManager,
		logger:    logger,
		now:       time.Now,
	}
}

const eventColumns = `partition_key, row_key, etag, shared_event_id, event_type, event_date, comment, cost, timestamp`

// GetAll retrieves every event row
func (r *EventRepository) GetAll(ctx context.Context) ([]*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM ` + entity.TableEvents + ` ORDER BY rowid`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list events", zap.Error(err))
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*entity.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// CreateAll inserts all rows or none
func (r *EventRepository) CreateAll(ctx context.Context, events []*entity.Event) error {
	query := `
		INSERT INTO ` + entity.TableEvents + ` (
			partition_key, row_key, etag, shared_event_id, event_type, event_date, comment, cost, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := r.now().UTC()
	etags := make([]string, len(events))

	err := r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := r.getExecutor(txCtx)
		for i, event := range events {
			etags[i] = uuid.NewString()
			_, err := exec.ExecContext(txCtx, query,
				event.AlpakaID,
				event.ID,
				etags[i],
				event.SharedEventID,
				event.EventType,
				event.EventDate.Format(entity.DateLayout),
				nullableStringPtr(event.Comment),
				nullableFloat(event.Cost),
				formatTimestamp(now),
			)
			if err != nil {
				if isConstraintViolation(err) {
					return fmt.Errorf("event %s for alpaka %s: %w", event.ID, event.AlpakaID, port.ErrAlreadyExists)
				}
				r.logger.Error("Failed to create event",
					zap.String("id", event.ID),
					zap.String("alpaka_id", event.AlpakaID),
					zap.Error(err))
				return fmt.Errorf("failed to create event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i, event := range events {
		event.ETag = etags[i]
		event.Timestamp = now
	}
	return nil
}

func scanEvent(row scanner) (*entity.Event, error) {
	var event entity.Event
	var eventDate, timestamp string
	var comment sql.NullString
	var cost sql.NullFloat64

	if err := row.Scan(
		&event.AlpakaID,
		&event.ID,
		&event.ETag,
		&event.SharedEventID,
		&event.EventType,
		&eventDate,
		&comment,
		&cost,
		&timestamp,
	); err != nil {
		return nil, err
	}

	var err error
	event.EventDate, err = time.Parse(entity.DateLayout, eventDate)
	if err != nil {
		return nil, fmt.Errorf("invalid event date %q: %w", eventDate, err)
	}
	if comment.Valid {
		event.Comment = &comment.String
	}
	if cost.Valid {
		event.Cost = &cost.Float64
	}
	event.Timestamp, err = time.Parse(timestampLayout, timestamp)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", timestamp, err)
	}

	return &event, nil
}

func (r *EventRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

func nullableStringPtr(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

// Verify interface compliance
var _ port.EventRepository = (*EventRepository)(nil)
