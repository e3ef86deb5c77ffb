package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/joshua-takyi/courtpay/internal/metrics"
	"github.com/joshua-takyi/courtpay/internal/models"
	"github.com/joshua-takyi/courtpay/internal/notify"
	"github.com/joshua-takyi/courtpay/internal/payments"
)

// PaymentService normalizes the two approval origins (processor webhook,
// manual reviewer action) into one ApprovalEvent and drives the
// confirm -> settle -> notify sequence. Settlement and notification happen
// outside the confirmation transaction; both are safe to replay.
type PaymentService struct {
	store          models.Store
	processor      payments.Client
	confirmations  *ConfirmationService
	settlements    *SettlementService
	notifier       notify.Notifier
	logger         *slog.Logger
	commissionRate float64 // fraction retained per payment, e.g. 0.10
	depositPercent float64 // percentage charged under the deposit modality
}

func NewPaymentService(
	store models.Store,
	processor payments.Client,
	confirmations *ConfirmationService,
	settlements *SettlementService,
	notifier notify.Notifier,
	logger *slog.Logger,
	commissionRate, depositPercent float64,
) *PaymentService {
	return &PaymentService{
		store:          store,
		processor:      processor,
		confirmations:  confirmations,
		settlements:    settlements,
		notifier:       notifier,
		logger:         logger,
		commissionRate: commissionRate,
		depositPercent: depositPercent,
	}
}

// CheckoutInput is the inbound create-payment-intent request. Amount arrives
// as text from clients; a non-numeric value defaults to zero rather than
// failing the request.
type CheckoutInput struct {
	Title      string                 `json:"title"`
	Quantity   int                    `json:"quantity"`
	Amount     string                 `json:"amount"`
	SlotRef    string                 `json:"slot_ref" validate:"required"`
	Modality   models.PaymentModality `json:"modality"`
	PayerName  string                 `json:"payer_name,omitempty"`
	PayerEmail string                 `json:"payer_email,omitempty"`
}

type CheckoutResult struct {
	PreferenceID  string  `json:"preference_id"`
	InitPoint     string  `json:"init_point"`
	SandboxPoint  string  `json:"sandbox_init_point,omitempty"`
	ChargedAmount float64 `json:"charged_amount"`
}

// ChargedAmount computes what the payer is actually charged: the full base
// amount, or the configured percentage of it under the deposit modality.
func (ps *PaymentService) ChargedAmount(base float64, modality models.PaymentModality) float64 {
	if modality == models.ModalityDeposit && ps.depositPercent > 0 {
		return round2(base * ps.depositPercent / 100)
	}
	return round2(base)
}

func (ps *PaymentService) splitAmounts(charged float64) models.SettlementAmounts {
	commission := round2(charged * ps.commissionRate)
	return models.SettlementAmounts{
		Charged:    charged,
		Commission: commission,
		Net:        round2(charged - commission),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CreateCheckout creates a payment intent at the processor. The slot ref is
// carried as the processor's opaque external reference and comes back intact
// on the payment record.
func (ps *PaymentService) CreateCheckout(ctx context.Context, input *CheckoutInput) (*CheckoutResult, error) {
	if err := models.Validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid checkout data: %w", err)
	}
	if _, err := models.ParseSlotRef(input.SlotRef); err != nil {
		return nil, err
	}

	base, err := strconv.ParseFloat(input.Amount, 64)
	if err != nil || base < 0 {
		ps.logger.Warn("non-numeric checkout amount, defaulting to zero", "amount", input.Amount)
		base = 0
	}
	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	// The processor bills unitPrice * quantity, so the displayed amount is
	// derived from the rounded unit price; rounding the total independently
	// could drift a cent from what the payer is actually charged.
	unitPrice := ps.ChargedAmount(base, input.Modality)
	charged := round2(unitPrice * float64(quantity))

	pref, err := ps.processor.CreatePreference(ctx, &payments.PreferenceRequest{
		Title:             input.Title,
		Quantity:          quantity,
		UnitPrice:         unitPrice,
		ExternalReference: input.SlotRef,
		PayerName:         input.PayerName,
		PayerEmail:        input.PayerEmail,
		Metadata: map[string]string{
			"modality": string(modalityOrFull(input.Modality)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout preference: %w", err)
	}

	return &CheckoutResult{
		PreferenceID:  pref.ID,
		InitPoint:     pref.InitPoint,
		SandboxPoint:  pref.SandboxInitURL,
		ChargedAmount: charged,
	}, nil
}

func modalityOrFull(m models.PaymentModality) models.PaymentModality {
	if m == "" {
		return models.ModalityFull
	}
	return m
}

// HandleWebhook processes an asynchronous payment notification. The
// notification is only a pointer: the authoritative record is fetched from
// the processor before anything is confirmed. Errors returned here are for
// logging only; the transport is acknowledged regardless, and redelivery of
// the same payment id is safe.
func (ps *PaymentService) HandleWebhook(ctx context.Context, paymentID string) error {
	payment, err := ps.processor.GetPayment(ctx, paymentID)
	if err != nil {
		// Cannot confirm yet; the transport's own redelivery retries us.
		return fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}

	if payment.Status != payments.StatusApproved {
		ps.logger.Info("ignoring non-approved payment notification",
			"payment_id", payment.ID,
			"status", payment.Status,
		)
		return nil
	}

	modality := models.PaymentModality(payment.Metadata["modality"])
	event := &models.ApprovalEvent{
		PaymentID:  payment.ID,
		SlotRef:    payment.ExternalReference,
		Amount:     payment.TransactionAmount,
		Modality:   modalityOrFull(modality),
		Outcome:    models.OutcomeApproved,
		Method:     payment.PaymentMethod,
		Channel:    models.ChannelOnline,
		PayerName:  payment.PayerName,
		PayerEmail: payment.PayerEmail,
		Metadata:   payment.Metadata,
	}
	_, err = ps.processApproval(ctx, event)
	if errors.Is(err, models.ErrCapacityExceeded) {
		// Money is already captured upstream; reversing it is not this
		// engine's call. The reconciliation record is the operational alarm.
		ps.logger.Warn("capacity exhausted for captured payment, queued for reconciliation",
			"payment_id", payment.ID,
			"slot_ref", payment.ExternalReference,
		)
		return nil
	}
	return err
}

// processApproval runs the confirm -> settle -> notify sequence shared by the
// webhook and manual paths.
func (ps *PaymentService) processApproval(ctx context.Context, event *models.ApprovalEvent) (*ConfirmResult, error) {
	result, err := ps.confirmations.Confirm(ctx, event)
	if errors.Is(err, models.ErrCapacityExceeded) {
		metrics.IncCapacityConflict()
		ps.queueReconciliation(ctx, event)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	slot, _ := models.ParseSlotRef(event.SlotRef)
	amounts := ps.splitAmounts(round2(event.Amount))
	if err := ps.settlements.Record(ctx, slot.FacilityID, slot.Date, event.PaymentID, event.Modality, amounts); err != nil {
		// The confirmation stands; a redelivery or reconciliation pass
		// records the ledger line later. Idempotent either way.
		ps.logger.Error("failed to record settlement", "payment_id", event.PaymentID, "error", err)
	}

	if !result.AlreadyConfirmed {
		ps.fanOut(ctx, event, slot, result.BookingID)
	}
	return result, nil
}

// fanOut notifies facility administrators of the confirmation. Best-effort:
// failures are logged and swallowed.
func (ps *PaymentService) fanOut(ctx context.Context, event *models.ApprovalEvent, slot models.SlotKey, bookingID string) {
	var targets []string
	facility, err := ps.store.GetFacility(ctx, slot.FacilityID)
	if err == nil {
		targets = facility.AdminIDs
	}

	notifyErr := ps.notifier.Notify(ctx, notify.Event{
		Kind:    "booking.confirmed",
		Targets: targets,
		Message: fmt.Sprintf("Booking confirmed for %s %s (%s)", slot.Date, slot.Time, slot.ResourceType),
		Data: map[string]string{
			"booking_id":  bookingID,
			"payment_id":  event.PaymentID,
			"facility_id": slot.FacilityID,
			"slot_ref":    slot.Ref(),
		},
	})
	if notifyErr != nil {
		metrics.IncNotificationFailure()
		ps.logger.Error("notification delivery failed", "booking_id", bookingID, "error", notifyErr)
	}
}

func (ps *PaymentService) queueReconciliation(ctx context.Context, event *models.ApprovalEvent) {
	if event.Channel != models.ChannelOnline {
		// Manual reviewers see the 409 directly; nothing was captured
		// upstream that needs reconciling.
		return
	}
	slot, _ := models.ParseSlotRef(event.SlotRef)
	rec := &models.Reconciliation{
		PaymentID:  event.PaymentID,
		FacilityID: slot.FacilityID,
		SlotRef:    event.SlotRef,
		Amount:     event.Amount,
		Reason:     "capacity_exceeded",
	}
	if err := ps.store.UpsertReconciliation(ctx, rec); err != nil {
		ps.logger.Error("failed to queue reconciliation", "payment_id", event.PaymentID, "error", err)
		return
	}
	metrics.IncReconciliation()
}

// CreateManualPayment records an offline payment awaiting review.
func (ps *PaymentService) CreateManualPayment(ctx context.Context, mp *models.ManualPayment) (*models.ManualPayment, error) {
	if _, err := models.ParseSlotRef(mp.SlotRef); err != nil {
		return nil, err
	}
	return ps.store.InsertManualPayment(ctx, mp)
}

// ApproveManual confirms a pending manual payment through the transition
// engine. Returns models.ErrCapacityExceeded when the slot is full so the
// caller can answer the reviewer with a conflict.
func (ps *PaymentService) ApproveManual(ctx context.Context, id primitive.ObjectID, reviewer string) (*ConfirmResult, error) {
	mp, err := ps.store.GetManualPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if mp.Status != models.ManualPending {
		return nil, fmt.Errorf("manual payment %s is already %s", id.Hex(), mp.Status)
	}

	event := &models.ApprovalEvent{
		PaymentID:   "manual-" + id.Hex(),
		SlotRef:     mp.SlotRef,
		Amount:      mp.Amount,
		Modality:    modalityOrFull(mp.Modality),
		Outcome:     models.OutcomeApproved,
		Method:      "manual",
		Channel:     models.ChannelManual,
		RequesterID: mp.RequesterID,
		PayerName:   mp.PayerName,
	}
	result, err := ps.processApproval(ctx, event)
	if err != nil {
		return nil, err
	}

	if err := ps.store.MarkManualPayment(ctx, id, models.ManualApproved, reviewer, ""); err != nil {
		// The booking is confirmed; a replayed approval is a no-op, so a
		// stale status here is log-worthy but not fatal.
		ps.logger.Error("failed to mark manual payment approved", "manual_id", id.Hex(), "error", err)
	}
	return result, nil
}

// RejectManual marks a pending manual payment rejected. Independent of
// capacity logic; never touches bookings.
func (ps *PaymentService) RejectManual(ctx context.Context, id primitive.ObjectID, reviewer, reason string) error {
	if reason == "" {
		reason = "rejected by reviewer"
	}
	return ps.store.MarkManualPayment(ctx, id, models.ManualRejected, reviewer, reason)
}

// OpenReconciliations lists captured payments still waiting on an operator.
func (ps *PaymentService) OpenReconciliations(ctx context.Context, facilityID string) ([]*models.Reconciliation, error) {
	return ps.store.ListOpenReconciliations(ctx, facilityID)
}
