package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

const ReconciliationCol = "reconciliations"

// Reconciliation is the durable record written when money was captured by the
// processor but the slot had no capacity left. The payment cannot be reversed
// from here; an operator works the queue (refund or re-seat) by hand.
type Reconciliation struct {
	PaymentID  string    `bson:"_id" json:"payment_id"`
	FacilityID string    `bson:"facility_id" json:"facility_id"`
	SlotRef    string    `bson:"slot_ref" json:"slot_ref"`
	Amount     float64   `bson:"amount" json:"amount"`
	Reason     string    `bson:"reason" json:"reason"`
	Resolved   bool      `bson:"resolved" json:"resolved"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

type ReconciliationRepo interface {
	// UpsertReconciliation is keyed by payment id so redelivered webhooks do
	// not queue the same payment twice.
	UpsertReconciliation(ctx context.Context, rec *Reconciliation) error
	ListOpenReconciliations(ctx context.Context, facilityID string) ([]*Reconciliation, error)
}

func (mdb *MongodbRepo) UpsertReconciliation(ctx context.Context, rec *Reconciliation) error {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, ReconciliationCol)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	update := bson.M{
		"$setOnInsert": bson.M{
			"facility_id": rec.FacilityID,
			"slot_ref":    rec.SlotRef,
			"amount":      rec.Amount,
			"reason":      rec.Reason,
			"resolved":    false,
			"created_at":  time.Now(),
		},
	}
	_, err = col.UpdateOne(ctx, bson.M{"_id": rec.PaymentID}, update, mongoUpsert())
	if err != nil {
		return fmt.Errorf("error upserting reconciliation: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) ListOpenReconciliations(ctx context.Context, facilityID string) ([]*Reconciliation, error) {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, ReconciliationCol)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	filter := bson.M{"resolved": false}
	if facilityID != "" {
		filter["facility_id"] = facilityID
	}
	cursor, err := col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error finding reconciliations: %w", err)
	}
	defer cursor.Close(ctx)

	var recs []*Reconciliation
	for cursor.Next(ctx) {
		var rec Reconciliation
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("error decoding reconciliation: %w", err)
		}
		recs = append(recs, &rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return recs, nil
}
