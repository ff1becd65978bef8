package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	"github.com/alpakasoelde/dashboard-api/internal/domain/entity"
	"github.com/alpakasoelde/dashboard-api/internal/voucher"
)

// MaxSoldToLength is the longest accepted buyer name, counted in characters
const MaxSoldToLength = 200

const (
	msgInvalidPurchaseDate = "Das Kaufdatum ist ungültig."
	msgInvalidAmount       = "Der Betrag muss größer als 0 sein."
	msgInvalidRedeemDate   = "Das Einlösedatum ist ungültig."
	msgSoldToTooLong       = "Der Name des Käufers darf höchstens 200 Zeichen enthalten."
	msgRedeemBeforeBuy     = "Das Einlösedatum darf nicht vor dem Kaufdatum liegen."
	msgInvalidNumberFmt    = "Die Gutscheinnummer muss mit %d beginnen und mindestens zwei Ziffern enthalten."
	msgDuplicateNumber     = "Die angegebene Gutscheinnummer existiert bereits."
	msgEmptyNumber         = "Die Gutscheinnummer darf nicht leer sein."
	msgVoucherNotFound     = "Der Gutschein wurde nicht gefunden."
	msgAlreadyRedeemedFmt  = "Der Gutschein wurde bereits am %s eingelöst."
	msgConcurrentChange    = "Der Gutschein wurde zwischenzeitlich geändert. Bitte erneut versuchen."
)

// AddVoucherCommand carries the raw fields of a new voucher.
// Blank optional strings count as absent.
type AddVoucherCommand struct {
	ID           string
	PurchaseDate string
	Amount       *float64
	RedeemedDate string
	SoldTo       string
}

// AddVoucherResult names the stored voucher
type AddVoucherResult struct {
	ID string `json:"gutscheinnummer"`
}

// RedeemVoucherCommand marks a voucher as used on the given date
type RedeemVoucherCommand struct {
	ID           string
	RedeemedDate string
}

// RedeemVoucherResult echoes the redemption
type RedeemVoucherResult struct {
	ID           string `json:"gutscheinnummer"`
	RedeemedDate string `json:"eingeloestAm"`
}

// VoucherSummary is one row of the voucher listing
type VoucherSummary struct {
	ID           string  `json:"gutscheinnummer"`
	PurchaseDate string  `json:"kaufdatum"`
	Amount       float64 `json:"betrag"`
	RedeemedDate *string `json:"eingeloestAm"`
	SoldTo       string  `json:"verkauftAn,omitempty"`
}

// VoucherExporter renders vouchers into a downloadable document
type VoucherExporter interface {
	Export(ctx context.Context, vouchers []*entity.Voucher) ([]byte, error)
}

// VoucherService manages gift vouchers
type VoucherService interface {
	AddVoucher(ctx context.Context, cmd AddVoucherCommand) (*AddVoucherResult, error)
	RedeemVoucher(ctx context.Context, cmd RedeemVoucherCommand) (*RedeemVoucherResult, error)
	ListVouchers(ctx context.Context) ([]VoucherSummary, error)
	ExportVouchers(ctx context.Context) ([]byte, error)
}

type voucherServiceImpl struct {
	voucherRepo port.VoucherRepository
	txManager   port.TransactionManager
	exporter    VoucherExporter
	metrics     port.Metrics
	logger      Logger
}

// NewVoucherService creates a new VoucherService
func NewVoucherService(
	voucherRepo port.VoucherRepository,
	txManager port.TransactionManager,
	exporter VoucherExporter,
	metrics port.Metrics,
	logger Logger,
) VoucherService {
	return &voucherServiceImpl{
		voucherRepo: voucherRepo,
		txManager:   txManager,
		exporter:    exporter,
		metrics:     metrics,
		logger:      logger,
	}
}

// AddVoucher validates and stores a new voucher, numbering it when no id is given
func (s *voucherServiceImpl) AddVoucher(ctx context.Context, cmd AddVoucherCommand) (*AddVoucherResult, error) {
	purchaseDate, err := voucher.ParseDate(cmd.PurchaseDate)
	if err != nil {
		return nil, invalid(msgInvalidPurchaseDate, "kaufdatum")
	}

	// NaN fails this comparison too
	if cmd.Amount == nil || !(*cmd.Amount > 0) {
		return nil, invalid(msgInvalidAmount, "betrag")
	}

	var redeemedDate *time.Time
	if strings.TrimSpace(cmd.RedeemedDate) != "" {
		parsed, err := voucher.ParseDate(cmd.RedeemedDate)
		if err != nil {
			return nil, invalid(msgInvalidRedeemDate, "eingeloestAm")
		}
		redeemedDate = &parsed
	}

	soldTo := strings.TrimSpace(cmd.SoldTo)
	if utf8.RuneCountInString(soldTo) > MaxSoldToLength {
		return nil, invalid(msgSoldToTooLong, "verkauftAn")
	}

	if redeemedDate != nil && redeemedDate.Before(purchaseDate) {
		return nil, invalid(msgRedeemBeforeBuy, "eingeloestAm")
	}

	requested := strings.TrimSpace(cmd.ID)
	year := purchaseDate.Year()

	v := &entity.Voucher{
		PurchaseDate: purchaseDate,
		Amount:       *cmd.Amount,
		RedeemedDate: redeemedDate,
		SoldTo:       soldTo,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.voucherRepo.GetAll(txCtx)
		if err != nil {
			return fmt.Errorf("failed to load vouchers: %w", err)
		}

		ids := make([]string, 0, len(existing))
		for _, e := range existing {
			ids = append(ids, e.ID)
		}

		if requested != "" {
			if err := voucher.ValidateNumber(requested, year); err != nil {
				return invalid(fmt.Sprintf(msgInvalidNumberFmt, year), "gutscheinnummer")
			}
			if voucher.Contains(ids, requested) {
				return &ValidationError{Kind: KindDuplicate, Detail: msgDuplicateNumber, Fields: []string{"gutscheinnummer"}}
			}
			v.ID = requested
		} else {
			v.ID = voucher.NextNumber(ids, year)
		}

		if err := s.voucherRepo.Create(txCtx, v); err != nil {
			if errors.Is(err, port.ErrAlreadyExists) {
				return &ValidationError{Kind: KindDuplicate, Detail: msgDuplicateNumber, Fields: []string{"gutscheinnummer"}}
			}
			return fmt.Errorf("failed to store voucher: %w", err)
		}
		return nil
	})
	if err != nil {
		if _, ok := AsValidationError(err); !ok {
			s.logger.Error("Failed to add voucher", "error", err)
		}
		return nil, err
	}

	s.metrics.VoucherCreated()
	s.logger.Info("Voucher stored", "id", v.ID, "amount", v.Amount)

	return &AddVoucherResult{ID: v.ID}, nil
}

// RedeemVoucher records the one-time redemption of an existing voucher
func (s *voucherServiceImpl) RedeemVoucher(ctx context.Context, cmd RedeemVoucherCommand) (*RedeemVoucherResult, error) {
	if strings.TrimSpace(cmd.ID) == "" {
		return nil, invalid(msgEmptyNumber, "gutscheinnummer")
	}
	// ids are matched exactly; surrounding whitespace is part of the key
	id := cmd.ID

	redeemedDate, err := voucher.ParseDate(cmd.RedeemedDate)
	if err != nil {
		return nil, invalid(msgInvalidRedeemDate, "eingeloestAm")
	}

	existing, err := s.voucherRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to load voucher", "id", id, "error", err)
		return nil, fmt.Errorf("failed to load voucher: %w", err)
	}
	if existing == nil {
		return nil, &ValidationError{Kind: KindNotFound, Detail: msgVoucherNotFound}
	}

	if existing.IsRedeemed() {
		return nil, invalid(fmt.Sprintf(msgAlreadyRedeemedFmt, voucher.FormatDate(*existing.RedeemedDate)), "eingeloestAm")
	}

	if redeemedDate.Before(voucher.DateOnly(existing.PurchaseDate)) {
		return nil, invalid(msgRedeemBeforeBuy, "eingeloestAm")
	}

	existing.RedeemedDate = &redeemedDate
	if err := s.voucherRepo.Update(ctx, existing); err != nil {
		if errors.Is(err, port.ErrPreconditionFailed) {
			s.logger.Info("Voucher changed during redemption", "id", id)
			return nil, &ValidationError{Kind: KindConflict, Detail: msgConcurrentChange}
		}
		s.logger.Error("Failed to redeem voucher", "id", id, "error", err)
		return nil, fmt.Errorf("failed to update voucher: %w", err)
	}

	s.metrics.VoucherRedeemed()
	s.logger.Info("Voucher redeemed", "id", id, "redeemed_date", voucher.FormatDate(redeemedDate))

	return &RedeemVoucherResult{ID: id, RedeemedDate: voucher.FormatDate(redeemedDate)}, nil
}

// ListVouchers returns all vouchers, newest purchase first
func (s *voucherServiceImpl) ListVouchers(ctx context.Context) ([]VoucherSummary, error) {
	vouchers, err := s.sortedVouchers(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]VoucherSummary, 0, len(vouchers))
	for _, v := range vouchers {
		summary := VoucherSummary{
			ID:           v.ID,
			PurchaseDate: voucher.FormatDate(v.PurchaseDate),
			Amount:       v.Amount,
			SoldTo:       v.SoldTo,
		}
		if v.RedeemedDate != nil {
			redeemed := voucher.FormatDate(*v.RedeemedDate)
			summary.RedeemedDate = &redeemed
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// ExportVouchers renders the listing as a workbook
func (s *voucherServiceImpl) ExportVouchers(ctx context.Context) ([]byte, error) {
	vouchers, err := s.sortedVouchers(ctx)
	if err != nil {
		return nil, err
	}

	data, err := s.exporter.Export(ctx, vouchers)
	if err != nil {
		s.logger.Error("Failed to export vouchers", "error", err)
		return nil, fmt.Errorf("failed to export vouchers: %w", err)
	}

	s.logger.Info("Vouchers exported", "count", len(vouchers), "bytes", len(data))
	return data, nil
}

func (s *voucherServiceImpl) sortedVouchers(ctx context.Context) ([]*entity.Voucher, error) {
	vouchers, err := s.voucherRepo.GetAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list vouchers", "error", err)
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	voucher.SortForListing(vouchers)
	return vouchers, nil
}
