package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const ManualPaymentCol = "manual_payments"

type ManualPaymentStatus string

const (
	ManualPending  ManualPaymentStatus = "pending"
	ManualApproved ManualPaymentStatus = "approved"
	ManualRejected ManualPaymentStatus = "rejected"
)

// ManualPayment is an offline payment (bank transfer, cash at the desk)
// reported for a slot and waiting on a reviewer's decision.
type ManualPayment struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FacilityID   string              `bson:"facility_id" json:"facility_id" validate:"required"`
	SlotRef      string              `bson:"slot_ref" json:"slot_ref" validate:"required"`
	Amount       float64             `bson:"amount" json:"amount"`
	Modality     PaymentModality     `bson:"modality" json:"modality"`
	PayerName    string              `bson:"payer_name,omitempty" json:"payer_name,omitempty"`
	RequesterID  string              `bson:"requester_id,omitempty" json:"requester_id,omitempty"`
	Note         string              `bson:"note,omitempty" json:"note,omitempty"`
	Status       ManualPaymentStatus `bson:"status" json:"status"`
	RejectReason string              `bson:"reject_reason,omitempty" json:"reject_reason,omitempty"`
	ReviewedBy   string              `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `bson:"updated_at" json:"updated_at"`
}

type ManualPaymentRepo interface {
	InsertManualPayment(ctx context.Context, mp *ManualPayment) (*ManualPayment, error)
	GetManualPayment(ctx context.Context, id primitive.ObjectID) (*ManualPayment, error)
	// MarkManualPayment transitions a pending record to approved/rejected; a
	// record already past pending is left alone and reported via ErrNotFound.
	MarkManualPayment(ctx context.Context, id primitive.ObjectID, status ManualPaymentStatus, reviewer, reason string) error
}

func (mdb *MongodbRepo) InsertManualPayment(ctx context.Context, mp *ManualPayment) (*ManualPayment, error) {
	if err := Validate.Struct(mp); err != nil {
		return nil, fmt.Errorf("invalid manual payment data: %w", err)
	}
	col, err := mdb.GetCollection(ctx, CourtpayDbName, ManualPaymentCol)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

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

	if _, err := col.InsertOne(ctx, mp); err != nil {
		return nil, fmt.Errorf("error inserting manual payment: %w", err)
	}
	return mp, nil
}

func (mdb *MongodbRepo) GetManualPayment(ctx context.Context, id primitive.ObjectID) (*ManualPayment, error) {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, ManualPaymentCol)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var mp ManualPayment
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&mp)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error finding manual payment: %w", err)
	}
	return &mp, nil
}

func (mdb *MongodbRepo) MarkManualPayment(ctx context.Context, id primitive.ObjectID, status ManualPaymentStatus, reviewer, reason string) error {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, ManualPaymentCol)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"status":        status,
			"reviewed_by":   reviewer,
			"reject_reason": reason,
			"updated_at":    time.Now(),
		},
	}
	res, err := col.UpdateOne(ctx, bson.M{"_id": id, "status": ManualPending}, update)
	if err != nil {
		return fmt.Errorf("error updating manual payment: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
