package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	SettlementLineCol  = "settlement_lines"
	DailySettlementCol = "daily_settlements"
)

// SettlementAmounts is the money split recorded per payment: what the payer
// was charged, the commission retained, and the net due to the facility.
type SettlementAmounts struct {
	Charged    float64 `bson:"charged" json:"charged"`
	Commission float64 `bson:"commission" json:"commission"`
	Net        float64 `bson:"net" json:"net"`
}

// SettlementLine is one row per payment id under a facility/day ledger.
// Immutable once written; its existence means "already counted".
type SettlementLine struct {
	PaymentID  string            `bson:"_id" json:"payment_id"`
	FacilityID string            `bson:"facility_id" json:"facility_id"`
	Date       string            `bson:"date" json:"date"`
	Modality   PaymentModality   `bson:"modality" json:"modality"`
	Amounts    SettlementAmounts `bson:"amounts" json:"amounts"`
	CreatedAt  time.Time         `bson:"created_at" json:"created_at"`
}

// DailySettlement aggregates a facility's day. Counters only ever go up.
type DailySettlement struct {
	ID              string    `bson:"_id" json:"-"`
	FacilityID      string    `bson:"facility_id" json:"facility_id"`
	Date            string    `bson:"date" json:"date"`
	TotalCount      int64     `bson:"total_count" json:"total_count"`
	FullCount       int64     `bson:"full_count" json:"full_count"`
	DepositCount    int64     `bson:"deposit_count" json:"deposit_count"`
	ChargedTotal    float64   `bson:"charged_total" json:"charged_total"`
	CommissionTotal float64   `bson:"commission_total" json:"commission_total"`
	NetTotal        float64   `bson:"net_total" json:"net_total"`
	CreatedAt       time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt       time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// DailySettlementID builds the aggregate document key for a facility/day.
func DailySettlementID(facilityID, date string) string {
	return facilityID + SlotRefDelimiter + date
}

type SettlementRepo interface {
	SettlementLineExists(ctx context.Context, paymentID string) (bool, error)
	InsertSettlementLine(ctx context.Context, line *SettlementLine) error
	// IncrementDailySettlement lazily creates the aggregate and applies
	// commuting increments.
	IncrementDailySettlement(ctx context.Context, facilityID, date string, modality PaymentModality, amounts SettlementAmounts) error
	GetDailySettlement(ctx context.Context, facilityID, date string) (*DailySettlement, error)
}

func (mdb *MongodbRepo) SettlementLineExists(ctx context.Context, paymentID string) (bool, error) {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, SettlementLineCol)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}

	count, err := col.CountDocuments(ctx, bson.M{"_id": paymentID})
	if err != nil {
		return false, fmt.Errorf("error checking settlement line: %w", err)
	}
	return count > 0, nil
}

func (mdb *MongodbRepo) InsertSettlementLine(ctx context.Context, line *SettlementLine) error {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, SettlementLineCol)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	if line.CreatedAt.IsZero() {
		line.CreatedAt = time.Now()
	}
	if _, err := col.InsertOne(ctx, line); err != nil {
		return fmt.Errorf("error inserting settlement line: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) IncrementDailySettlement(ctx context.Context, facilityID, date string, modality PaymentModality, amounts SettlementAmounts) error {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, DailySettlementCol)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	inc := bson.M{
		"total_count":      1,
		"charged_total":    amounts.Charged,
		"commission_total": amounts.Commission,
		"net_total":        amounts.Net,
	}
	if modality == ModalityDeposit {
		inc["deposit_count"] = 1
	} else {
		inc["full_count"] = 1
	}

	now := time.Now()
	update := bson.M{
		"$inc": inc,
		"$set": bson.M{"updated_at": now},
		"$setOnInsert": bson.M{
			"facility_id": facilityID,
			"date":        date,
			"created_at":  now,
		},
	}
	_, err = col.UpdateOne(ctx, bson.M{"_id": DailySettlementID(facilityID, date)}, update, mongoUpsert())
	if err != nil {
		return fmt.Errorf("error incrementing daily settlement: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) GetDailySettlement(ctx context.Context, facilityID, date string) (*DailySettlement, error) {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, DailySettlementCol)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var daily DailySettlement
	err = col.FindOne(ctx, bson.M{"_id": DailySettlementID(facilityID, date)}).Decode(&daily)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error finding daily settlement: %w", err)
	}
	return &daily, nil
}
