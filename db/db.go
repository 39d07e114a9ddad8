package db

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	UserCollection          *mongo.Collection
	ConsultantsCollection   *mongo.Collection
	ServicesCollection      *mongo.Collection
	SlotCollection          *mongo.Collection
	AppointmentsCollection  *mongo.Collection
	PaymentsCollection      *mongo.Collection
	CompensationsCollection *mongo.Collection
	IdempotencyCollection   *mongo.Collection
	EventsCollection        *mongo.Collection
	RegistrationsCollection *mongo.Collection
	Client                  *mongo.Client
)

// Initialize MongoDB connection
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	var err error
	Client, err = mongo.Connect(context.TODO(), options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	database := Client.Database("mindline")
	UserCollection = database.Collection("users")
	ConsultantsCollection = database.Collection("consultants")
	ServicesCollection = database.Collection("services")
	SlotCollection = database.Collection("slots")
	AppointmentsCollection = database.Collection("appointments")
	PaymentsCollection = database.Collection("payments")
	CompensationsCollection = database.Collection("compensations")
	IdempotencyCollection = database.Collection("idempotency")
	EventsCollection = database.Collection("events")
	RegistrationsCollection = database.Collection("registrations")
}

// CreateIndexes sets up the unique and TTL indexes the stores rely on.
func CreateIndexes(ctx context.Context) error {
	_, err := SlotCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slotId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_slot_id"),
	})
	if err != nil {
		return err
	}
	_, err = AppointmentsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "appointmentId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_appointment_id"),
	})
	if err != nil {
		return err
	}
	_, err = RegistrationsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "eventId", Value: 1}, {Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_event_user"),
	})
	return err
}
