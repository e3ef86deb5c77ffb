package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

const SlotAnchorCol = "slots"

// TouchSlot bumps the slot's anchor document. Mongo transactions only
// conflict on documents both sides write, never on overlapping reads, so a
// confirm that only read occupancy could commit alongside another confirm
// for the same slot and overshoot capacity. Writing the anchor makes every
// same-slot confirm collide on this one document; the loser aborts with a
// transient error and the transaction runner retries it against a fresh
// snapshot, where it re-reads the occupancy.
func (mdb *MongodbRepo) TouchSlot(ctx context.Context, slot SlotKey) error {
	col, err := mdb.GetCollection(ctx, CourtpayDbName, SlotAnchorCol)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	update := bson.M{
		"$inc": bson.M{"revision": 1},
		"$set": bson.M{"touched_at": time.Now()},
	}
	_, err = col.UpdateOne(ctx, bson.M{"_id": slot.Ref()}, update, mongoUpsert())
	if err != nil {
		return fmt.Errorf("error touching slot anchor: %w", err)
	}
	return nil
}
