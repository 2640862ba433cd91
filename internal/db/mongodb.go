package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hezhaoyun/ichess-server/internal/player"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(uri, database string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(100).
		SetMaxConnIdleTime(5 * time.Minute)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := &MongoDB{
		Client:   client,
		Database: client.Database(database),
	}

	// Create indexes in the background (non-blocking)
	go db.ensureIndexes()

	return db, nil
}

// ensureIndexes creates all required indexes. Called once on startup.
func (m *MongoDB) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err := m.Players().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "pid", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "elo", Value: -1}}},
	})
	if err != nil {
		log.Printf("Warning: failed to create indexes on players: %v", err)
		return
	}

	log.Println("Database indexes ensured")
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

func (m *MongoDB) Players() *mongo.Collection {
	return m.Database.Collection("players")
}

// FindByPID loads a player record, returning (nil, nil) when unknown.
func (m *MongoDB) FindByPID(ctx context.Context, pid string) (*player.Record, error) {
	var rec player.Record
	err := m.Players().FindOne(ctx, bson.M{"pid": pid}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Upsert writes a player record keyed by pid.
func (m *MongoDB) Upsert(ctx context.Context, rec *player.Record) error {
	_, err := m.Players().UpdateOne(ctx,
		bson.M{"pid": rec.PID},
		bson.M{"$set": rec},
		options.Update().SetUpsert(true),
	)
	return err
}

// DeleteByPID removes a player record.
func (m *MongoDB) DeleteByPID(ctx context.Context, pid string) error {
	_, err := m.Players().DeleteOne(ctx, bson.M{"pid": pid})
	return err
}
