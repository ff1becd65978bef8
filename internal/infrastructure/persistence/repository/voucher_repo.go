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

// VoucherRepository implements port.VoucherRepository
type VoucherRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *sql.DB, logger *zap.Logger) port.VoucherRepository {
	return &VoucherRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

const voucherColumns = `row_key, etag, purchase_date, amount, redeemed_date, sold_to, timestamp`

// GetAll retrieves every voucher of the partition
func (r *VoucherRepository) GetAll(ctx context.Context) ([]*entity.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM ` + entity.TableVouchers + ` WHERE partition_key = ?`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, entity.VoucherPartition)
	if err != nil {
		r.logger.Error("Failed to list vouchers", zap.Error(err))
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []*entity.Voucher
	for rows.Next() {
		voucher, err := r.scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		vouchers = append(vouchers, voucher)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vouchers: %w", err)
	}

	return vouchers, nil
}

// GetByID retrieves a voucher by its number
func (r *VoucherRepository) GetByID(ctx context.Context, id string) (*entity.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM ` + entity.TableVouchers +
		` WHERE partition_key = ? AND row_key = ?`

	voucher, err := r.scanVoucher(r.getExecutor(ctx).QueryRowContext(ctx, query, entity.VoucherPartition, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get voucher by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}

	return voucher, nil
}

// Create inserts a voucher if no voucher with the same number exists
func (r *VoucherRepository) Create(ctx context.Context, voucher *entity.Voucher) error {
	query := `
		INSERT INTO ` + entity.TableVouchers + ` (
			partition_key, row_key, etag, purchase_date, amount, redeemed_date, sold_to, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	etag := uuid.NewString()
	now := r.now().UTC()

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entity.VoucherPartition,
		voucher.ID,
		etag,
		voucher.PurchaseDate.Format(entity.DateLayout),
		voucher.Amount,
		nullableDate(voucher.RedeemedDate),
		nullableString(voucher.SoldTo),
		formatTimestamp(now),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("voucher %s: %w", voucher.ID, port.ErrAlreadyExists)
		}
		r.logger.Error("Failed to create voucher", zap.String("id", voucher.ID), zap.Error(err))
		return fmt.Errorf("failed to create voucher: %w", err)
	}

	voucher.ETag = etag
	voucher.Timestamp = now
	return nil
}

// Update writes the voucher back if the stored etag still matches
func (r *VoucherRepository) Update(ctx context.Context, voucher *entity.Voucher) error {
	query := `
		UPDATE ` + entity.TableVouchers + `
		SET etag = ?, purchase_date = ?, amount = ?, redeemed_date = ?, sold_to = ?, timestamp = ?
		WHERE partition_key = ? AND row_key = ? AND etag = ?
	`

	etag := uuid.NewString()
	now := r.now().UTC()

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		etag,
		voucher.PurchaseDate.Format(entity.DateLayout),
		voucher.Amount,
		nullableDate(voucher.RedeemedDate),
		nullableString(voucher.SoldTo),
		formatTimestamp(now),
		entity.VoucherPartition,
		voucher.ID,
		voucher.ETag,
	)
	if err != nil {
		r.logger.Error("Failed to update voucher", zap.String("id", voucher.ID), zap.Error(err))
		return fmt.Errorf("failed to update voucher: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("voucher %s: %w", voucher.ID, port.ErrPreconditionFailed)
	}

	voucher.ETag = etag
	voucher.Timestamp = now
	return nil
}

// scanner covers *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *VoucherRepository) scanVoucher(row scanner) (*entity.Voucher, error) {
	var voucher entity.Voucher
	var purchaseDate string
	var redeemedDate, soldTo sql.NullString
	var timestamp string

	if err := row.Scan(
		&voucher.ID,
		&voucher.ETag,
		&purchaseDate,
		&voucher.Amount,
		&redeemedDate,
		&soldTo,
		&timestamp,
	); err != nil {
		return nil, err
	}

	parsed, err := time.Parse(entity.DateLayout, purchaseDate)
	if err != nil {
		return nil, fmt.Errorf("invalid purchase date %q: %w", purchaseDate, err)
	}
	voucher.PurchaseDate = parsed

	if redeemedDate.Valid {
		parsed, err := time.Parse(entity.DateLayout, redeemedDate.String)
		if err != nil {
			return nil, fmt.Errorf("invalid redeemed date %q: %w", redeemedDate.String, err)
		}
		voucher.RedeemedDate = &parsed
	}
	if soldTo.Valid {
		voucher.SoldTo = soldTo.String
	}

	voucher.Timestamp, err = time.Parse(timestampLayout, timestamp)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", timestamp, err)
	}

	return &voucher, nil
}

// getExecutor returns appropriate executor based on context
func (r *VoucherRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

func nullableDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(entity.DateLayout)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Verify interface compliance
var _ port.VoucherRepository = (*VoucherRepository)(nil)
