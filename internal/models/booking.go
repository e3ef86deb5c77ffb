package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const BookingCol = "bookings"

type BookingState string

const (
	BookingProvisional BookingState = "provisional"
	BookingConfirmed   BookingState = "confirmed"
	BookingRejected    BookingState = "rejected"
)

type BookingChannel string

const (
	ChannelOnline BookingChannel = "online"
	ChannelManual BookingChannel = "manual"
	ChannelWalkIn BookingChannel = "walk_in"
)

type PaymentModality string

const (
	ModalityFull    PaymentModality = "full"
	ModalityDeposit PaymentModality = "deposit"
)

// PaymentDetail is the payment sub-record written onto a booking at
// confirmation time. PaymentID doubles as the idempotency marker for
// at-least-once webhook delivery.
type PaymentDetail struct {
	PaymentID  string            `bson:"payment_id" json:"payment_id"`
	Amount     float64           `bson:"amount" json:"amount"`
	Modality   PaymentModality   `bson:"modality" json:"modality"`
	Method     string            `bson:"method,omitempty" json:"method,omitempty"`
	PayerName  string            `bson:"payer_name,omitempty" json:"payer_name,omitempty"`
	PayerEmail string            `bson:"payer_email,omitempty" json:"payer_email,omitempty"`
	Metadata   map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type Booking struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FacilityID   string             `bson:"facility_id" json:"facility_id"`
	Date         string             `bson:"date" json:"date"`
	ResourceType string             `bson:"resource_type" json:"resource_type"`
	Time         string             `bson:"time" json:"time"`
	RequesterID  string             `bson:"requester_id,omitempty" json:"requester_id,omitempty"`
	State        BookingState       `bson:"state" json:"state"`
	Channel      BookingChannel     `bson:"channel" json:"channel"`
	Payment      *PaymentDetail     `bson:"payment,omitempty" json:"payment,omitempty"`
	RejectReason string             `bson:"reject_reason,omitempty" json:"reject_reason,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

func (b *Booking) Slot() SlotKey {
	return SlotKey{
		FacilityID:   b.FacilityID,
		Date:         b.Date,
		ResourceType: NormalizeResourceType(b.ResourceType),
		Time:         b.Time,
	}
}

func (b *Booking) BeforeCreate() error {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	// Canonical representation going forward; reads still tolerate legacy docs.
	b.ResourceType = NormalizeResourceType(b.ResourceType)
	return nil
}

type BookingRepo interface {
	// ConfirmedCount counts confirmed bookings occupying the slot. Legacy
	// documents storing resource_type as a number count the same as their
	// string form; one physical booking never counts twice.
	ConfirmedCount(ctx context.Context, slot SlotKey) (int, error)
	// FindByPaymentID locates the booking already carrying a payment id, the
	// idempotency check for duplicate approval delivery.
	FindByPaymentID(ctx context.Context, paymentID string) (*Booking, error)
	// FindProvisional returns any provisional booking for the slot; first
	// match is as valid as any other.
	FindProvisional(ctx context.Context, slot SlotKey) (*Booking, error)
	// TouchSlot writes the slot's anchor document inside the current
	// transaction. Concurrent same-slot confirms then write-conflict on the
	// anchor instead of both committing over the same occupancy reads.
	TouchSlot(ctx context.Context, slot SlotKey) error
	InsertBooking(ctx context.Context, booking *Booking) (*Booking, error)
	ConfirmBooking(ctx context.Context, id primitive.ObjectID, payment *PaymentDetail) error
	RejectBooking(ctx context.Context, id primitive.ObjectID, reason string) error
	GetBooking(ctx context.Context, id primitive.ObjectID) (*Booking, error)
}

func slotFilter(slot SlotKey) bson.M {
	return bson.M{
		"facility_id":   slot.FacilityID,
		"date":          slot.Date,
		"resource_type": bson.M{"$in": ResourceTypeVariants(slot.ResourceType)},
		"time":          slot.Time,
	}
}

func (mdb *MongodbRepo) ConfirmedCount(ctx context.Context, slot SlotKey) (int, error) {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, BookingCol)
	if err != nil {
		return 0, fmt.Errorf("error getting collection: %w", err)
	}

	filter := slotFilter(slot)
	filter["state"] = BookingConfirmed

	// One document matches the $in filter at most once, whichever stored
	// representation of the resource type it carries, so a plain count never
	// double-counts a booking. Distinct is off the table here: the server
	// rejects it inside multi-document transactions, and this read runs
	// inside the confirm transaction.
	count, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("error counting confirmed bookings: %w", err)
	}
	return int(count), nil
}

func (mdb *MongodbRepo) FindByPaymentID(ctx context.Context, paymentID string) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, BookingCol)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var booking Booking
	err = col.FindOne(ctx, bson.M{"payment.payment_id": paymentID}).Decode(&booking)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding booking by payment id: %w", err)
	}
	return &booking, nil
}

func (mdb *MongodbRepo) FindProvisional(ctx context.Context, slot SlotKey) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, BookingCol)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	filter := slotFilter(slot)
	filter["state"] = BookingProvisional

	var booking Booking
	err = col.FindOne(ctx, filter).Decode(&booking)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding provisional booking: %w", err)
	}
	return &booking, nil
}

func (mdb *MongodbRepo) InsertBooking(ctx context.Context, booking *Booking) (*Booking, error) {
	if err := booking.BeforeCreate(); err != nil {
		return nil, err
	}
	col, err := mdb.GetCollection(ctx, CourtpayDbName, BookingCol)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	now := time.Now()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	if _, err := col.InsertOne(ctx, booking); err != nil {
		return nil, fmt.Errorf("error inserting booking: %w", err)
	}
	return booking, nil
}

func (mdb *MongodbRepo) ConfirmBooking(ctx context.Context, id primitive.ObjectID, payment *PaymentDetail) error {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, BookingCol)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"state":      BookingConfirmed,
			"payment":    payment,
			"updated_at": time.Now(),
		},
	}
	res, err := col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("error confirming booking: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (mdb *MongodbRepo) RejectBooking(ctx context.Context, id primitive.ObjectID, reason string) error {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, BookingCol)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"state":         BookingRejected,
			"reject_reason": reason,
			"updated_at":    time.Now(),
		},
	}
	res, err := col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("error rejecting booking: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (mdb *MongodbRepo) GetBooking(ctx context.Context, id primitive.ObjectID) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, BookingCol)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var booking Booking
	err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error finding booking: %w", err)
	}
	return &booking, nil
}

func mongoUpsert() *options.UpdateOptions {
	return options.Update().SetUpsert(true)
}
