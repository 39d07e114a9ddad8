package appointments

import (
	"context"
	"errors"
	"log"
	"time"

	"mindline/models"
	"mindline/slots"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CompensationStore persists slot-release retries queued by the reschedule
// saga.
type CompensationStore interface {
	Insert(ctx context.Context, rec *models.Compensation) error
	ListPending(ctx context.Context, kind string, limit int64) ([]models.Compensation, error)
	MarkDone(ctx context.Context, id string) error
	RecordAttempt(ctx context.Context, id string, cause error) error
}

type MongoCompensationStore struct {
	col *mongo.Collection
}

func NewMongoCompensationStore(col *mongo.Collection) *MongoCompensationStore {
	return &MongoCompensationStore{col: col}
}

func (s *MongoCompensationStore) Insert(ctx context.Context, rec *models.Compensation) error {
	_, err := s.col.InsertOne(ctx, rec)
	return err
}

func (s *MongoCompensationStore) ListPending(ctx context.Context, kind string, limit int64) ([]models.Compensation, error) {
	cur, err := s.col.Find(ctx, bson.M{"kind": kind, "done": false})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Compensation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MongoCompensationStore) MarkDone(ctx context.Context, id string) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"done": true, "updatedAt": time.Now()}, "$inc": bson.M{"attempts": 1}},
	)
	return err
}

func (s *MongoCompensationStore) RecordAttempt(ctx context.Context, id string, cause error) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"lastError": cause.Error(), "updatedAt": time.Now()}, "$inc": bson.M{"attempts": 1}},
	)
	return err
}

// maxCompensationAttempts is how many sweeps retry a release before it is
// left for an operator (attempts keep being recorded, the log line is the
// alert channel).
const maxCompensationAttempts = 10

// RunCompensationSweeper retries queued slot releases until ctx is done.
// Orphaned-reschedule records are never auto-retried, only logged.
func RunCompensationSweeper(ctx context.Context, comp CompensationStore, slotStore slots.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, comp, slotStore)
		}
	}
}

func sweep(ctx context.Context, comp CompensationStore, slotStore slots.Store) {
	pending, err := comp.ListPending(ctx, models.CompensationReleaseSlot, 100)
	if err != nil {
		log.Printf("compensation sweep: list failed: %v", err)
		return
	}

	for _, rec := range pending {
		if rec.Attempts >= maxCompensationAttempts {
			log.Printf("compensation sweep: slot %s release still failing after %d attempts (appointment %s)",
				rec.SlotID, rec.Attempts, rec.AppointmentID)
			continue
		}

		_, err := slotStore.Release(ctx, rec.SlotID, "")
		if err == nil {
			if merr := comp.MarkDone(ctx, rec.ID); merr != nil {
				log.Printf("compensation sweep: mark done %s: %v", rec.ID, merr)
			}
			continue
		}

		// A slot that already left booked state needs no further release.
		var unavail *slots.UnavailableError
		if errors.As(err, &unavail) || errors.Is(err, slots.ErrNotFound) {
			if merr := comp.MarkDone(ctx, rec.ID); merr != nil {
				log.Printf("compensation sweep: mark done %s: %v", rec.ID, merr)
			}
			continue
		}

		if rerr := comp.RecordAttempt(ctx, rec.ID, err); rerr != nil {
			log.Printf("compensation sweep: record attempt %s: %v", rec.ID, rerr)
		}
	}
}
