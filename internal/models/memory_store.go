package models

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-memory Store used by tests and local development. One
// mutex serializes whole transactions, which trivially satisfies the
// serializability the engine needs; a failed transaction restores the
// snapshot taken at entry, so partial writes never leak.
type MemoryStore struct {
	mu sync.Mutex

	facilities      map[string]Facility
	bookings        map[string]Booking
	lines           map[string]SettlementLine
	dailies         map[string]DailySettlement
	manualPayments  map[string]ManualPayment
	reconciliations map[string]Reconciliation
	slotRevisions   map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		facilities:      make(map[string]Facility),
		bookings:        make(map[string]Booking),
		lines:           make(map[string]SettlementLine),
		dailies:         make(map[string]DailySettlement),
		manualPayments:  make(map[string]ManualPayment),
		reconciliations: make(map[string]Reconciliation),
		slotRevisions:   make(map[string]int64),
	}
}

var _ Store = (*MemoryStore)(nil)

type memTxnKey struct{}

func inTxn(ctx context.Context) bool {
	v, _ := ctx.Value(memTxnKey{}).(bool)
	return v
}

// lock acquires the store mutex unless the call is already inside a
// transaction, which holds it for the whole unit of work.
func (ms *MemoryStore) lock(ctx context.Context) func() {
	if inTxn(ctx) {
		return func() {}
	}
	ms.mu.Lock()
	return ms.mu.Unlock
}

func (ms *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	snapshot := ms.copyState()
	err := fn(context.WithValue(ctx, memTxnKey{}, true))
	if err != nil {
		ms.restore(snapshot)
		return err
	}
	return nil
}

type memState struct {
	facilities      map[string]Facility
	bookings        map[string]Booking
	lines           map[string]SettlementLine
	dailies         map[string]DailySettlement
	manualPayments  map[string]ManualPayment
	reconciliations map[string]Reconciliation
	slotRevisions   map[string]int64
}

func (ms *MemoryStore) copyState() memState {
	return memState{
		facilities:      copyMap(ms.facilities),
		bookings:        copyMap(ms.bookings),
		lines:           copyMap(ms.lines),
		dailies:         copyMap(ms.dailies),
		manualPayments:  copyMap(ms.manualPayments),
		reconciliations: copyMap(ms.reconciliations),
		slotRevisions:   copyMap(ms.slotRevisions),
	}
}

func (ms *MemoryStore) restore(s memState) {
	ms.facilities = s.facilities
	ms.bookings = s.bookings
	ms.lines = s.lines
	ms.dailies = s.dailies
	ms.manualPayments = s.manualPayments
	ms.reconciliations = s.reconciliations
	ms.slotRevisions = s.slotRevisions
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// --- FacilityRepo ---

func (ms *MemoryStore) GetFacility(ctx context.Context, facilityID string) (*Facility, error) {
	defer ms.lock(ctx)()
	f, ok := ms.facilities[facilityID]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (ms *MemoryStore) CapacityFor(ctx context.Context, facilityID, resourceType string) (int, error) {
	f, err := ms.GetFacility(ctx, facilityID)
	if errors.Is(err, ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return f.CapacityFor(resourceType), nil
}

func (ms *MemoryStore) UpsertFacility(ctx context.Context, facility *Facility) error {
	defer ms.lock(ctx)()
	normalized := make(map[string]int, len(facility.Capacities))
	for k, v := range facility.Capacities {
		normalized[NormalizeResourceType(k)] = v
	}
	facility.Capacities = normalized
	facility.UpdatedAt = time.Now()
	if facility.CreatedAt.IsZero() {
		facility.CreatedAt = facility.UpdatedAt
	}
	ms.facilities[facility.ID] = *facility
	return nil
}

// --- BookingRepo ---

func sameSlot(b Booking, slot SlotKey) bool {
	return b.FacilityID == slot.FacilityID &&
		b.Date == slot.Date &&
		b.Time == slot.Time &&
		NormalizeResourceType(b.ResourceType) == NormalizeResourceType(slot.ResourceType)
}

func (ms *MemoryStore) ConfirmedCount(ctx context.Context, slot SlotKey) (int, error) {
	defer ms.lock(ctx)()
	count := 0
	for _, b := range ms.bookings {
		if b.State == BookingConfirmed && sameSlot(b, slot) {
			count++
		}
	}
	return count, nil
}

// TouchSlot mirrors the Mongo anchor write. The single mutex already
// serializes whole transactions here, so the revision only exists for tests
// to observe that confirms perform the write the real backend depends on.
func (ms *MemoryStore) TouchSlot(ctx context.Context, slot SlotKey) error {
	defer ms.lock(ctx)()
	ms.slotRevisions[slot.Ref()]++
	return nil
}

// SlotRevision reports how many committed confirms have touched the slot's
// anchor.
func (ms *MemoryStore) SlotRevision(slot SlotKey) int64 {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.slotRevisions[slot.Ref()]
}

func (ms *MemoryStore) FindByPaymentID(ctx context.Context, paymentID string) (*Booking, error) {
	defer ms.lock(ctx)()
	for _, b := range ms.bookings {
		if b.Payment != nil && b.Payment.PaymentID == paymentID {
			found := b
			return &found, nil
		}
	}
	return nil, nil
}

func (ms *MemoryStore) FindProvisional(ctx context.Context, slot SlotKey) (*Booking, error) {
	defer ms.lock(ctx)()
	for _, b := range ms.bookings {
		if b.State == BookingProvisional && sameSlot(b, slot) {
			found := b
			return &found, nil
		}
	}
	return nil, nil
}

func (ms *MemoryStore) InsertBooking(ctx context.Context, booking *Booking) (*Booking, error) {
	defer ms.lock(ctx)()
	if err := booking.BeforeCreate(); err != nil {
		return nil, err
	}
	now := time.Now()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	ms.bookings[booking.ID.Hex()] = *booking
	return booking, nil
}

func (ms *MemoryStore) ConfirmBooking(ctx context.Context, id primitive.ObjectID, payment *PaymentDetail) error {
	defer ms.lock(ctx)()
	b, ok := ms.bookings[id.Hex()]
	if !ok {
		return ErrNotFound
	}
	b.State = BookingConfirmed
	b.Payment = payment
	b.UpdatedAt = time.Now()
	ms.bookings[id.Hex()] = b
	return nil
}

func (ms *MemoryStore) RejectBooking(ctx context.Context, id primitive.ObjectID, reason string) error {
	defer ms.lock(ctx)()
	b, ok := ms.bookings[id.Hex()]
	if !ok {
		return ErrNotFound
	}
	b.State = BookingRejected
	b.RejectReason = reason
	b.UpdatedAt = time.Now()
	ms.bookings[id.Hex()] = b
	return nil
}

func (ms *MemoryStore) GetBooking(ctx context.Context, id primitive.ObjectID) (*Booking, error) {
	defer ms.lock(ctx)()
	b, ok := ms.bookings[id.Hex()]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

// --- SettlementRepo ---

func (ms *MemoryStore) SettlementLineExists(ctx context.Context, paymentID string) (bool, error) {
	defer ms.lock(ctx)()
	_, ok := ms.lines[paymentID]
	return ok, nil
}

func (ms *MemoryStore) InsertSettlementLine(ctx context.Context, line *SettlementLine) error {
	defer ms.lock(ctx)()
	if line.CreatedAt.IsZero() {
		line.CreatedAt = time.Now()
	}
	ms.lines[line.PaymentID] = *line
	return nil
}

func (ms *MemoryStore) IncrementDailySettlement(ctx context.Context, facilityID, date string, modality PaymentModality, amounts SettlementAmounts) error {
	defer ms.lock(ctx)()
	id := DailySettlementID(facilityID, date)
	daily, ok := ms.dailies[id]
	if !ok {
		daily = DailySettlement{
			ID:         id,
			FacilityID: facilityID,
			Date:       date,
			CreatedAt:  time.Now(),
		}
	}
	daily.TotalCount++
	if modality == ModalityDeposit {
		daily.DepositCount++
	} else {
		daily.FullCount++
	}
	daily.ChargedTotal += amounts.Charged
	daily.CommissionTotal += amounts.Commission
	daily.NetTotal += amounts.Net
	daily.UpdatedAt = time.Now()
	ms.dailies[id] = daily
	return nil
}

func (ms *MemoryStore) GetDailySettlement(ctx context.Context, facilityID, date string) (*DailySettlement, error) {
	defer ms.lock(ctx)()
	daily, ok := ms.dailies[DailySettlementID(facilityID, date)]
	if !ok {
		return nil, ErrNotFound
	}
	return &daily, nil
}

// --- ManualPaymentRepo ---

func (ms *MemoryStore) InsertManualPayment(ctx context.Context, mp *ManualPayment) (*ManualPayment, error) {
	defer ms.lock(ctx)()
	if mp.ID.IsZero() {
		mp.ID = primitive.NewObjectID()
	}
	now := time.Now()
	mp.Status = ManualPending
	mp.CreatedAt = now
	mp.UpdatedAt = now
	if mp.Modality == "" {
		mp.Modality = ModalityFull
	}
	ms.manualPayments[mp.ID.Hex()] = *mp
	return mp, nil
}

func (ms *MemoryStore) GetManualPayment(ctx context.Context, id primitive.ObjectID) (*ManualPayment, error) {
	defer ms.lock(ctx)()
	mp, ok := ms.manualPayments[id.Hex()]
	if !ok {
		return nil, ErrNotFound
	}
	return &mp, nil
}

func (ms *MemoryStore) MarkManualPayment(ctx context.Context, id primitive.ObjectID, status ManualPaymentStatus, reviewer, reason string) error {
	defer ms.lock(ctx)()
	mp, ok := ms.manualPayments[id.Hex()]
	if !ok || mp.Status != ManualPending {
		return ErrNotFound
	}
	mp.Status = status
	mp.ReviewedBy = reviewer
	mp.RejectReason = reason
	mp.UpdatedAt = time.Now()
	ms.manualPayments[id.Hex()] = mp
	return nil
}

// --- ReconciliationRepo ---

func (ms *MemoryStore) UpsertReconciliation(ctx context.Context, rec *Reconciliation) error {
	defer ms.lock(ctx)()
	if _, ok := ms.reconciliations[rec.PaymentID]; ok {
		return nil
	}
	rec.Resolved = false
	rec.CreatedAt = time.Now()
	ms.reconciliations[rec.PaymentID] = *rec
	return nil
}

func (ms *MemoryStore) ListOpenReconciliations(ctx context.Context, facilityID string) ([]*Reconciliation, error) {
	defer ms.lock(ctx)()
	var recs []*Reconciliation
	for _, rec := range ms.reconciliations {
		if rec.Resolved {
			continue
		}
		if facilityID != "" && rec.FacilityID != facilityID {
			continue
		}
		r := rec
		recs = append(recs, &r)
	}
	return recs, nil
}
