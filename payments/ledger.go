package payments

import (
	"context"

	"mindline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LedgerStore persists the durable payment audit rows, one per terminal
// gateway outcome.
type LedgerStore interface {
	Insert(ctx context.Context, p *models.Payment) error
	ListByAccount(ctx context.Context, accountID string) ([]models.Payment, error)
}

type MongoLedgerStore struct {
	col *mongo.Collection
}

func NewMongoLedgerStore(col *mongo.Collection) *MongoLedgerStore {
	return &MongoLedgerStore{col: col}
}

func (s *MongoLedgerStore) Insert(ctx context.Context, p *models.Payment) error {
	_, err := s.col.InsertOne(ctx, p)
	return err
}

func (s *MongoLedgerStore) ListByAccount(ctx context.Context, accountID string) ([]models.Payment, error) {
	cur, err := s.col.Find(ctx, bson.M{"accountId": accountID},
		options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Payment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
