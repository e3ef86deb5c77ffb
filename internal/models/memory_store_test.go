package models

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreTransactionRollback(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.RunTransaction(ctx, func(txCtx context.Context) error {
		if _, err := store.InsertBooking(txCtx, &Booking{
			FacilityID:   "fac-1",
			Date:         "2024-05-01",
			ResourceType: "7",
			Time:         "18:00",
			State:        BookingConfirmed,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected transaction error, got %v", err)
	}

	count, err := store.ConfirmedCount(ctx, SlotKey{
		FacilityID: "fac-1", Date: "2024-05-01", ResourceType: "7", Time: "18:00",
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("rolled-back insert still visible, count = %d", count)
	}
}

func TestMemoryStoreOccupancyEquivalentRepresentations(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.InsertBooking(ctx, &Booking{
		FacilityID:   "fac-1",
		Date:         "2024-05-01",
		ResourceType: "5",
		Time:         "10:00",
		State:        BookingConfirmed,
	}); err != nil {
		t.Fatal(err)
	}

	// A slot keyed by the numeric representation must see the same count.
	numericKey, err := ParseSlotRef("fac-1|2024-05-01|5|10:00")
	if err != nil {
		t.Fatal(err)
	}
	count, err := store.ConfirmedCount(ctx, numericKey)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count via parsed ref = %d, want 1", count)
	}

	count, err = store.ConfirmedCount(ctx, SlotKey{
		FacilityID: "fac-1", Date: "2024-05-01", ResourceType: " 5 ", Time: "10:00",
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count via unnormalized key = %d, want 1", count)
	}
}

func TestMemoryStoreManualPaymentLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	mp, err := store.InsertManualPayment(ctx, &ManualPayment{
		FacilityID: "fac-1",
		SlotRef:    "fac-1|2024-05-01|7|18:00",
		Amount:     100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if mp.Status != ManualPending {
		t.Errorf("new manual payment status = %q", mp.Status)
	}

	if err := store.MarkManualPayment(ctx, mp.ID, ManualRejected, "ops", "no-show"); err != nil {
		t.Fatal(err)
	}

	// Already past pending: a second transition is refused.
	err = store.MarkManualPayment(ctx, mp.ID, ManualApproved, "ops", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-pending record, got %v", err)
	}
}
