package appointments

import (
	"context"
	"errors"
	"time"

	"mindline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store owns appointment records. Transitions that must happen at most once
// (marking rescheduled, applying a payment outcome) are conditional writes
// keyed on the current status, so racing callers cannot double-apply.
type Store interface {
	Insert(ctx context.Context, appt *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	Delete(ctx context.Context, id string) error
	ListByCustomer(ctx context.Context, customerID string) ([]models.Appointment, error)

	// UpdateStatus is the administrative transition: no condition beyond
	// existence, no slot side effects.
	UpdateStatus(ctx context.Context, id, status string) (*models.Appointment, error)

	// MarkRescheduled closes the original appointment: confirmed and not
	// previously rescheduled -> rescheduled with the one-way flag set.
	// Returns false if the appointment was not eligible.
	MarkRescheduled(ctx context.Context, id string) (bool, error)

	// ApplyPaymentOutcome transitions pending -> confirmed/cancelled with the
	// gateway's payment details. Returns false without mutating anything if
	// the appointment already left pending.
	ApplyPaymentOutcome(ctx context.Context, id, status string, details *models.PaymentDetails) (bool, error)
}

// MongoStore implements Store on a Mongo collection.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

var after = options.FindOneAndUpdate().SetReturnDocument(options.After)

func (s *MongoStore) Insert(ctx context.Context, appt *models.Appointment) error {
	_, err := s.col.InsertOne(ctx, appt)
	return err
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.col.FindOne(ctx, bson.M{"appointmentId": id}).Decode(&appt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"appointmentId": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListByCustomer(ctx context.Context, customerID string) ([]models.Appointment, error) {
	cur, err := s.col.Find(ctx, bson.M{"customerId": customerID},
		options.Find().SetSort(bson.M{"dateBooking": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Appointment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) UpdateStatus(ctx context.Context, id, status string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"appointmentId": id},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
		after,
	).Decode(&appt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (s *MongoStore) MarkRescheduled(ctx context.Context, id string) (bool, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"appointmentId": id, "status": models.ApptConfirmed, "isRescheduled": false},
		bson.M{"$set": bson.M{
			"status":        models.ApptRescheduled,
			"isRescheduled": true,
			"updatedAt":     time.Now(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *MongoStore) ApplyPaymentOutcome(ctx context.Context, id, status string, details *models.PaymentDetails) (bool, error) {
	set := bson.M{"status": status, "updatedAt": time.Now()}
	if details != nil {
		set["paymentDetails"] = details
	}
	res, err := s.col.UpdateOne(ctx,
		bson.M{"appointmentId": id, "status": models.ApptPending},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
