package models

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

var Validate = validator.New()

// Store is the transactional contract the confirmation engine requires from
// whatever backs it: snapshot-isolated multi-document read-modify-write
// transactions. RunTransaction executes fn atomically; the ctx handed to fn
// must flow into every repo call made inside so reads and writes share one
// transaction. Transient write conflicts are retried by the runner, not by
// callers.
type Store interface {
	FacilityRepo
	BookingRepo
	SettlementRepo
	ManualPaymentRepo
	ReconciliationRepo

	RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type MongodbRepo struct {
	mongodbClient *mongo.Client
}

func MongodbNewRepo(mongodbClient *mongo.Client) *MongodbRepo {
	return &MongodbRepo{
		mongodbClient: mongodbClient,
	}
}

var _ Store = (*MongodbRepo)(nil)

func (mdb *MongodbRepo) GetCollection(ctx context.Context, dbName, colName string) (*mongo.Collection, error) {
	if mdb.mongodbClient == nil {
		return nil, fmt.Errorf("mongodb client is not initialized")
	}
	client := mdb.mongodbClient.Database(dbName).Collection(colName)
	return client, nil
}

// RunTransaction runs fn inside a Mongo session transaction. The driver's
// transaction runner retries on TransientTransactionError. Mongo only raises
// write conflicts on documents both transactions write — reads never
// conflict — which is why every confirm touches the slot anchor document
// (TouchSlot): that shared write is what serializes same-slot confirms.
// Business aborts such as ErrCapacityExceeded carry no transient label and
// propagate after rolling back.
func (mdb *MongodbRepo) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mdb.mongodbClient == nil {
		return fmt.Errorf("mongodb client is not initialized")
	}

	session, err := mdb.mongodbClient.StartSession()
	if err != nil {
		return fmt.Errorf("error starting session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	}, txnOpts)
	return err
}

// EnsureIndexes creates the indexes the engine relies on. The unique partial
// index on the booking's payment id backstops the in-transaction idempotency
// check: even a replay that slips past the read cannot insert a second
// booking for the same payment.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, BookingCol)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "payment.payment_id", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"payment.payment_id": bson.M{"$exists": true}}),
	})
	if err != nil {
		return fmt.Errorf("error creating booking indexes: %w", err)
	}
	return nil
}
