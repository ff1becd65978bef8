package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	"github.com/alpakasoelde/dashboard-api/internal/domain/entity"
	"github.com/alpakasoelde/dashboard-api/internal/infrastructure/persistence/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlpakaRepository implements port.AlpakaRepository
type AlpakaRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewAlpakaRepository creates a new alpaka repository
func NewAlpakaRepository(db *sql.DB, logger *zap.Logger) port.AlpakaRepository {
	return &AlpakaRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

const alpakaColumns = `row_key, etag, name, birth_date, image, timestamp`

// List retrieves the herd ordered by name
func (r *AlpakaRepository) List(ctx context.Context) ([]*entity.Alpaka, error) {
	query := `SELECT ` + alpakaColumns + ` FROM ` + entity.TableAlpakas +
		` WHERE partition_key = ? ORDER BY name, row_key`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, entity.AlpakaPartition)
	if err != nil {
		r.logger.Error("Failed to list alpakas", zap.Error(err))
		return nil, fmt.Errorf("failed to list alpakas: %w", err)
	}
	defer rows.Close()

	var alpakas []*entity.Alpaka
	for rows.Next() {
		alpaka, err := scanAlpaka(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alpaka: %w", err)
		}
		alpakas = append(alpakas, alpaka)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alpakas: %w", err)
	}

	return alpakas, nil
}

// GetByID retrieves an alpaka by id
func (r *AlpakaRepository) GetByID(ctx context.Context, id string) (*entity.Alpaka, error) {
	query := `SELECT ` + alpakaColumns + ` FROM ` + entity.TableAlpakas +
		` WHERE partition_key = ? AND row_key = ?`

	alpaka, err := scanAlpaka(r.getExecutor(ctx).QueryRowContext(ctx, query, entity.AlpakaPartition, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get alpaka by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get alpaka: %w", err)
	}

	return alpaka, nil
}

// Create inserts an alpaka
func (r *AlpakaRepository) Create(ctx context.Context, alpaka *entity.Alpaka) error {
	query := `
		INSERT INTO ` + entity.TableAlpakas + ` (
			partition_key, row_key, etag, name, birth_date, image, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if alpaka.ID == "" {
		alpaka.ID = uuid.NewString()
	}
	etag := uuid.NewString()
	now := r.now().UTC()

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entity.AlpakaPartition,
		alpaka.ID,
		etag,
		alpaka.Name,
		alpaka.BirthDate,
		nullableString(alpaka.Image),
		formatTimestamp(now),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("alpaka %s: %w", alpaka.ID, port.ErrAlreadyExists)
		}
		r.logger.Error("Failed to create alpaka", zap.String("id", alpaka.ID), zap.Error(err))
		return fmt.Errorf("failed to create alpaka: %w", err)
	}

	alpaka.ETag = etag
	alpaka.Timestamp = now
	return nil
}

// Update writes the alpaka back if the stored etag still matches
func (r *AlpakaRepository) Update(ctx context.Context, alpaka *entity.Alpaka) error {
	query := `
		UPDATE ` + entity.TableAlpakas + `
		SET etag = ?, name = ?, birth_date = ?, image = ?, timestamp = ?
		WHERE partition_key = ? AND row_key = ? AND etag = ?
	`

	etag := uuid.NewString()
	now := r.now().UTC()

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		etag,
		alpaka.Name,
		alpaka.BirthDate,
		nullableString(alpaka.Image),
		formatTimestamp(now),
		entity.AlpakaPartition,
		alpaka.ID,
		alpaka.ETag,
	)
	if err != nil {
		r.logger.Error("Failed to update alpaka", zap.String("id", alpaka.ID), zap.Error(err))
		return fmt.Errorf("failed to update alpaka: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("alpaka %s: %w", alpaka.ID, port.ErrPreconditionFailed)
	}

	alpaka.ETag = etag
	alpaka.Timestamp = now
	return nil
}

// Names returns the id to name lookup used by the event listing
func (r *AlpakaRepository) Names(ctx context.Context) (map[string]string, error) {
	query := `SELECT row_key, name FROM ` + entity.TableAlpakas + ` WHERE partition_key = ?`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, entity.AlpakaPartition)
	if err != nil {
		r.logger.Error("Failed to load alpaka names", zap.Error(err))
		return nil, fmt.Errorf("failed to load alpaka names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan alpaka name: %w", err)
		}
		names[strings.ToLower(id)] = name
	}
	return names, rows.Err()
}

func scanAlpaka(row scanner) (*entity.Alpaka, error) {
	var alpaka entity.Alpaka
	var image sql.NullString
	var timestamp string

	if err := row.Scan(
		&alpaka.ID,
		&alpaka.ETag,
		&alpaka.Name,
		&alpaka.BirthDate,
		&image,
		&timestamp,
	); err != nil {
		return nil, err
	}
	alpaka.Image = image.String

	var err error
	alpaka.Timestamp, err = time.Parse(timestampLayout, timestamp)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", timestamp, err)
	}

	return &alpaka, nil
}

func (r *AlpakaRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.AlpakaRepository = (*AlpakaRepository)(nil)
