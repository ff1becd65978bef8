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

// MessageRepository implements port.MessageRepository
type MessageRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *sql.DB, logger *zap.Logger) port.MessageRepository {
	return &MessageRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Create stores a contact message. A zero Timestamp is set to the current time.
func (r *MessageRepository) Create(ctx context.Context, message *entity.Message) error {
	query := `
		INSERT INTO ` + entity.TableMessages + ` (
			partition_key, row_key, etag, name, email, message, privacy_policy_accepted, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = r.now()
	}
	message.Timestamp = message.Timestamp.UTC()
	etag := uuid.NewString()

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entity.ContactPartition,
		message.ID,
		etag,
		message.Name,
		message.Email,
		message.Message,
		message.PrivacyPolicyAccepted,
		formatTimestamp(message.Timestamp),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("message %s: %w", message.ID, port.ErrAlreadyExists)
		}
		r.logger.Error("Failed to create message", zap.String("id", message.ID), zap.Error(err))
		return fmt.Errorf("failed to create message: %w", err)
	}

	message.ETag = etag
	return nil
}

// List retrieves all messages, newest first
func (r *MessageRepository) List(ctx context.Context) ([]*entity.Message, error) {
	query := `
		SELECT row_key, etag, name, email, message, privacy_policy_accepted, timestamp
		FROM ` + entity.TableMessages + `
		WHERE partition_key = ?
		ORDER BY timestamp DESC, row_key DESC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, entity.ContactPartition)
	if err != nil {
		r.logger.Error("Failed to list messages", zap.Error(err))
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*entity.Message
	for rows.Next() {
		var message entity.Message
		var timestamp string
		if err := rows.Scan(
			&message.ID,
			&message.ETag,
			&message.Name,
			&message.Email,
			&message.Message,
			&message.PrivacyPolicyAccepted,
			&timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		message.Timestamp, err = time.Parse(timestampLayout, timestamp)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", timestamp, err)
		}
		messages = append(messages, &message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// Delete removes a message by id
func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM ` + entity.TableMessages + ` WHERE partition_key = ? AND row_key = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, entity.ContactPartition, id)
	if err != nil {
		r.logger.Error("Failed to delete message", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("message %s: %w", id, port.ErrNotFound)
	}

	return nil
}

// CountOlderThan counts messages written strictly before cutoff
func (r *MessageRepository) CountOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM ` + entity.TableMessages + ` WHERE partition_key = ? AND timestamp < ?`

	var count int
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, entity.ContactPartition, formatTimestamp(cutoff)).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count old messages", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}

	return count, nil
}

// getExecutor returns appropriate executor based on context
func (r *MessageRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.MessageRepository = (*MessageRepository)(nil)
