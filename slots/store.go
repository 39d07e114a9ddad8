package slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mindline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// HoldTTL is how long a provisional hold lives before another customer may
// reclaim the slot.
const HoldTTL = 15 * time.Minute

var (
	ErrNotFound  = errors.New("slot not found")
	ErrNotHolder = errors.New("slot held by another customer")
)

// UnavailableError reports a failed hold or booking attempt together with the
// slot state observed at write time, so the client can disambiguate.
type UnavailableError struct {
	SlotID   string
	Status   string
	HoldedBy string
}

func (e *UnavailableError) Error() string {
	if e.HoldedBy != "" {
		return fmt.Sprintf("slot %s unavailable: %s (held by %s)", e.SlotID, e.Status, e.HoldedBy)
	}
	return fmt.Sprintf("slot %s unavailable: %s", e.SlotID, e.Status)
}

// Store owns slot records. Every status/holder mutation goes through a
// conditional write keyed on the status read at write time; callers never
// blindly overwrite.
type Store interface {
	// TryHold transitions available -> booked with holdedBy = customerID.
	// A customer re-entering their own hold refreshes the lease, and an
	// expired hold left by an abandoned checkout may be reclaimed. Exactly
	// one of N concurrent callers wins; the rest get *UnavailableError.
	TryHold(ctx context.Context, slotID, customerID string) (*models.Slot, error)

	// ConfirmBooking clears the holder while leaving the slot booked: the
	// booking is no longer provisional.
	ConfirmBooking(ctx context.Context, slotID string) (*models.Slot, error)

	// Release transitions booked -> available and clears the holder. A
	// customer may release only their own hold; the system (empty
	// customerID) may release any booked slot.
	Release(ctx context.Context, slotID, customerID string) (*models.Slot, error)

	// IsHeldBy reports whether the slot is provisionally held by customerID.
	IsHeldBy(ctx context.Context, slotID, customerID string) (bool, error)

	GetByID(ctx context.Context, slotID string) (*models.Slot, error)
	ListByConsultant(ctx context.Context, consultantID string, from time.Time) ([]models.Slot, error)
	Create(ctx context.Context, slot *models.Slot) error
	CreateMany(ctx context.Context, slots []models.Slot) error
}

// MongoStore implements Store on a Mongo collection.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

var after = options.FindOneAndUpdate().SetReturnDocument(options.After)

func (s *MongoStore) TryHold(ctx context.Context, slotID, customerID string) (*models.Slot, error) {
	now := time.Now()
	filter := bson.M{
		"slotId": slotID,
		"$or": bson.A{
			bson.M{"status": models.SlotAvailable},
			bson.M{"status": models.SlotBooked, "holdedBy": customerID},
			bson.M{"status": models.SlotBooked, "holdedBy": bson.M{"$nin": bson.A{"", nil}}, "heldUntil": bson.M{"$lt": now}},
		},
	}
	update := bson.M{"$set": bson.M{
		"status":    models.SlotBooked,
		"holdedBy":  customerID,
		"heldUntil": now.Add(HoldTTL),
	}}

	var slot models.Slot
	err := s.col.FindOneAndUpdate(ctx, filter, update, after).Decode(&slot)
	if err == nil {
		return &slot, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	return nil, s.unavailable(ctx, slotID)
}

func (s *MongoStore) ConfirmBooking(ctx context.Context, slotID string) (*models.Slot, error) {
	filter := bson.M{"slotId": slotID, "status": models.SlotBooked}
	update := bson.M{
		"$set":   bson.M{"status": models.SlotBooked},
		"$unset": bson.M{"holdedBy": "", "heldUntil": ""},
	}

	var slot models.Slot
	err := s.col.FindOneAndUpdate(ctx, filter, update, after).Decode(&slot)
	if err == nil {
		return &slot, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	return nil, s.unavailable(ctx, slotID)
}

func (s *MongoStore) Release(ctx context.Context, slotID, customerID string) (*models.Slot, error) {
	filter := bson.M{"slotId": slotID, "status": models.SlotBooked}
	if customerID != "" {
		filter["holdedBy"] = customerID
	}
	update := bson.M{
		"$set":   bson.M{"status": models.SlotAvailable},
		"$unset": bson.M{"holdedBy": "", "heldUntil": ""},
	}

	var slot models.Slot
	err := s.col.FindOneAndUpdate(ctx, filter, update, after).Decode(&slot)
	if err == nil {
		return &slot, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	current, gerr := s.GetByID(ctx, slotID)
	if gerr != nil {
		return nil, gerr
	}
	if current.Status == models.SlotBooked {
		return nil, ErrNotHolder
	}
	return nil, &UnavailableError{SlotID: slotID, Status: current.Status, HoldedBy: current.HoldedBy}
}

func (s *MongoStore) IsHeldBy(ctx context.Context, slotID, customerID string) (bool, error) {
	slot, err := s.GetByID(ctx, slotID)
	if err != nil {
		return false, err
	}
	return slot.Status == models.SlotBooked && slot.HoldedBy == customerID, nil
}

func (s *MongoStore) GetByID(ctx context.Context, slotID string) (*models.Slot, error) {
	var slot models.Slot
	err := s.col.FindOne(ctx, bson.M{"slotId": slotID}).Decode(&slot)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (s *MongoStore) ListByConsultant(ctx context.Context, consultantID string, from time.Time) ([]models.Slot, error) {
	filter := bson.M{
		"consultantId": consultantID,
		"status":       bson.M{"$nin": bson.A{models.SlotDeleted, models.SlotCancelled}},
	}
	if !from.IsZero() {
		filter["startTime"] = bson.M{"$gte": from}
	}

	cur, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.M{"startTime": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Slot
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) Create(ctx context.Context, slot *models.Slot) error {
	_, err := s.col.InsertOne(ctx, slot)
	return err
}

func (s *MongoStore) CreateMany(ctx context.Context, slots []models.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	docs := make([]interface{}, len(slots))
	for i, sl := range slots {
		docs[i] = sl
	}
	_, err := s.col.InsertMany(ctx, docs)
	return err
}

// unavailable re-reads the slot to build the losing side's error.
func (s *MongoStore) unavailable(ctx context.Context, slotID string) error {
	current, err := s.GetByID(ctx, slotID)
	if err != nil {
		return err
	}
	return &UnavailableError{SlotID: slotID, Status: current.Status, HoldedBy: current.HoldedBy}
}
