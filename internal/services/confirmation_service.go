package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joshua-takyi/courtpay/internal/metrics"
	"github.com/joshua-takyi/courtpay/internal/models"
)

// ConfirmResult reports the booking a confirmed payment landed on.
type ConfirmResult struct {
	BookingID string `json:"booking_id"`
	// AlreadyConfirmed is true when the approval id had been processed before
	// and this call was a no-op replay.
	AlreadyConfirmed bool `json:"already_confirmed,omitempty"`
}

// ConfirmationService is the booking transition engine. One call runs one
// atomic transaction: idempotency check, capacity check against current
// confirmed occupancy, then flip-or-create of the target booking. The store's
// transaction runner retries write conflicts, so a losing concurrent confirm
// re-reads occupancy instead of committing over a stale count.
type ConfirmationService struct {
	store  models.Store
	logger *slog.Logger
}

func NewConfirmationService(store models.Store, logger *slog.Logger) *ConfirmationService {
	return &ConfirmationService{
		store:  store,
		logger: logger,
	}
}

// Confirm applies an approved event to the slot it references. Returns
// models.ErrBadSlotRef for an unresolvable reference (permanent, never
// retried) and models.ErrCapacityExceeded when the slot is full (no partial
// writes in that case). Safe to invoke more than once per payment id.
func (cs *ConfirmationService) Confirm(ctx context.Context, event *models.ApprovalEvent) (*ConfirmResult, error) {
	if event.Outcome != models.OutcomeApproved {
		return nil, fmt.Errorf("refusing to confirm event with outcome %q", event.Outcome)
	}
	if event.PaymentID == "" {
		return nil, fmt.Errorf("approval event has no payment id")
	}

	slot, err := models.ParseSlotRef(event.SlotRef)
	if err != nil {
		return nil, err
	}

	var result ConfirmResult
	err = cs.store.RunTransaction(ctx, func(txCtx context.Context) error {
		// Idempotency guard first: a booking already carrying this payment id
		// means a redelivered notification, and the whole call is a no-op
		// success. Checked ahead of capacity so a replay is never mistaken
		// for a conflict once the slot has filled up.
		existing, err := cs.store.FindByPaymentID(txCtx, event.PaymentID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = ConfirmResult{BookingID: existing.ID.Hex(), AlreadyConfirmed: true}
			return nil
		}

		// Transactions only conflict on documents they both write, so the
		// occupancy read below carries no protection on its own. Touching the
		// slot anchor makes every same-slot confirm write one shared
		// document; the losing transaction retries and re-reads occupancy.
		if err := cs.store.TouchSlot(txCtx, slot); err != nil {
			return err
		}

		capacity, err := cs.store.CapacityFor(txCtx, slot.FacilityID, slot.ResourceType)
		if err != nil {
			return err
		}
		occupancy, err := cs.store.ConfirmedCount(txCtx, slot)
		if err != nil {
			return err
		}
		if occupancy >= capacity {
			return fmt.Errorf("%w: slot %s holds %d of %d", models.ErrCapacityExceeded, slot.Ref(), occupancy, capacity)
		}

		detail := event.PaymentDetail()

		provisional, err := cs.store.FindProvisional(txCtx, slot)
		if err != nil {
			return err
		}
		if provisional != nil {
			if err := cs.store.ConfirmBooking(txCtx, provisional.ID, detail); err != nil {
				return err
			}
			result = ConfirmResult{BookingID: provisional.ID.Hex()}
			return nil
		}

		// No provisional booking for this slot: walk-up/manual flow, create
		// the booking directly in the confirmed state.
		channel := event.Channel
		if channel == "" {
			channel = models.ChannelWalkIn
		}
		booking := &models.Booking{
			FacilityID:   slot.FacilityID,
			Date:         slot.Date,
			ResourceType: slot.ResourceType,
			Time:         slot.Time,
			RequesterID:  event.RequesterID,
			State:        models.BookingConfirmed,
			Channel:      channel,
			Payment:      detail,
			CreatedAt:    time.Now(),
		}
		created, err := cs.store.InsertBooking(txCtx, booking)
		if err != nil {
			return err
		}
		result = ConfirmResult{BookingID: created.ID.Hex()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyConfirmed {
		metrics.IncConfirmation(string(event.Channel))
		cs.logger.Info("booking confirmed",
			"booking_id", result.BookingID,
			"payment_id", event.PaymentID,
			"slot", slot.Ref(),
		)
	}
	return &result, nil
}
