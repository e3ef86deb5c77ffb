package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joshua-takyi/courtpay/internal/metrics"
	"github.com/joshua-takyi/courtpay/internal/models"
)

// SettlementService keeps the per-facility daily ledger. Recording is
// idempotent: the settlement line keyed by payment id is the replay guard, so
// a redelivered webhook never double-counts the daily aggregates. Runs in its
// own transaction, after (not atomically with) the booking confirmation.
type SettlementService struct {
	store  models.Store
	logger *slog.Logger
}

func NewSettlementService(store models.Store, logger *slog.Logger) *SettlementService {
	return &SettlementService{
		store:  store,
		logger: logger,
	}
}

// Record writes the line item and increments the daily aggregate once per
// payment id. A second call with the same id is a no-op.
func (ss *SettlementService) Record(ctx context.Context, facilityID, date, paymentID string, modality models.PaymentModality, amounts models.SettlementAmounts) error {
	if paymentID == "" {
		return fmt.Errorf("settlement requires a payment id")
	}
	if modality == "" {
		modality = models.ModalityFull
	}

	recorded := false
	err := ss.store.RunTransaction(ctx, func(txCtx context.Context) error {
		exists, err := ss.store.SettlementLineExists(txCtx, paymentID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		line := &models.SettlementLine{
			PaymentID:  paymentID,
			FacilityID: facilityID,
			Date:       date,
			Modality:   modality,
			Amounts:    amounts,
		}
		if err := ss.store.InsertSettlementLine(txCtx, line); err != nil {
			return err
		}
		if err := ss.store.IncrementDailySettlement(txCtx, facilityID, date, modality, amounts); err != nil {
			return err
		}
		recorded = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record settlement for payment %s: %w", paymentID, err)
	}

	if recorded {
		metrics.IncSettlementLine()
		ss.logger.Info("settlement recorded",
			"payment_id", paymentID,
			"facility_id", facilityID,
			"date", date,
			"charged", amounts.Charged,
		)
	}
	return nil
}

// Daily returns the aggregate for a facility/day, nil when nothing settled.
func (ss *SettlementService) Daily(ctx context.Context, facilityID, date string) (*models.DailySettlement, error) {
	daily, err := ss.store.GetDailySettlement(ctx, facilityID, date)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return daily, nil
}
