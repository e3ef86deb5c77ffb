package services

import (
	"context"
	"fmt"

	"github.com/joshua-takyi/courtpay/internal/models"
)

type FacilityService struct {
	store models.Store
}

func NewFacilityService(store models.Store) *FacilityService {
	return &FacilityService{
		store: store,
	}
}

func (fs *FacilityService) UpsertFacility(ctx context.Context, facility *models.Facility) error {
	if facility.ID == "" {
		return fmt.Errorf("facility ID is required")
	}
	return fs.store.UpsertFacility(ctx, facility)
}

func (fs *FacilityService) GetFacility(ctx context.Context, facilityID string) (*models.Facility, error) {
	return fs.store.GetFacility(ctx, facilityID)
}

// SlotOccupancy is a reviewer-facing availability snapshot. Informational
// only: the authoritative check always happens inside the confirmation
// transaction.
type SlotOccupancy struct {
	Slot      models.SlotKey `json:"slot"`
	Capacity  int            `json:"capacity"`
	Confirmed int            `json:"confirmed"`
	Available int            `json:"available"`
}

func (fs *FacilityService) Occupancy(ctx context.Context, ref string) (*SlotOccupancy, error) {
	slot, err := models.ParseSlotRef(ref)
	if err != nil {
		return nil, err
	}

	capacity, err := fs.store.CapacityFor(ctx, slot.FacilityID, slot.ResourceType)
	if err != nil {
		return nil, err
	}
	confirmed, err := fs.store.ConfirmedCount(ctx, slot)
	if err != nil {
		return nil, err
	}

	available := capacity - confirmed
	if available < 0 {
		available = 0
	}
	return &SlotOccupancy{
		Slot:      slot,
		Capacity:  capacity,
		Confirmed: confirmed,
		Available: available,
	}, nil
}
