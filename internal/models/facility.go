package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CourtpayDbName = "courtpay"
	FacilityCol    = "facilities"
)

// Facility owns the capacity mapping consulted by the confirmation engine.
// Read-only from the engine's perspective.
type Facility struct {
	ID         string         `bson:"_id" json:"id" validate:"required"`
	Name       string         `bson:"name" json:"name"`
	Capacities map[string]int `bson:"capacities" json:"capacities"`
	AdminIDs   []string       `bson:"admin_ids" json:"admin_ids,omitempty"`
	CreatedAt  time.Time      `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt  time.Time      `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// CapacityFor answers how many concurrent confirmed bookings one resource type
// may hold. A missing facility or missing key defaults to 1, never 0.
func (f *Facility) CapacityFor(resourceType string) int {
	if f == nil {
		return 1
	}
	rt := NormalizeResourceType(resourceType)
	if cap, ok := f.Capacities[rt]; ok && cap > 0 {
		return cap
	}
	return 1
}

type FacilityRepo interface {
	GetFacility(ctx context.Context, facilityID string) (*Facility, error)
	// CapacityFor is a pure read, safe inside a transaction.
	CapacityFor(ctx context.Context, facilityID, resourceType string) (int, error)
	UpsertFacility(ctx context.Context, facility *Facility) error
}

func (mdb *MongodbRepo) GetFacility(ctx context.Context, facilityID string) (*Facility, error) {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, FacilityCol)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var facility Facility
	err = col.FindOne(ctx, bson.M{"_id": facilityID}).Decode(&facility)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error finding facility %s: %w", facilityID, err)
	}
	return &facility, nil
}

func (mdb *MongodbRepo) CapacityFor(ctx context.Context, facilityID, resourceType string) (int, error) {
	facility, err := mdb.GetFacility(ctx, facilityID)
	if errors.Is(err, ErrNotFound) {
		// Unknown facility: conservative single-slot default.
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return facility.CapacityFor(resourceType), nil
}

func (mdb *MongodbRepo) UpsertFacility(ctx context.Context, facility *Facility) error {
	if err := Validate.Struct(facility); err != nil {
		return fmt.Errorf("invalid facility data: %w", err)
	}
	col, err := mdb.GetCollection(ctx, CourtpayDbName, FacilityCol)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	// Normalize capacity keys so lookups never depend on how the client spelled
	// the resource type.
	normalized := make(map[string]int, len(facility.Capacities))
	for k, v := range facility.Capacities {
		normalized[NormalizeResourceType(k)] = v
	}
	facility.Capacities = normalized

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"name":       facility.Name,
			"capacities": facility.Capacities,
			"admin_ids":  facility.AdminIDs,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := mongoUpsert()
	_, err = col.UpdateOne(ctx, bson.M{"_id": facility.ID}, update, opts)
	if err != nil {
		return fmt.Errorf("error upserting facility: %w", err)
	}
	return nil
}
