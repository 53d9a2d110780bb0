package orphans

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/picload/picload/internal/database"
	"github.com/picload/picload/internal/models"
	"github.com/picload/picload/pkg/logger"
)

// Record is the Mongo representation of one orphan-candidate object:
// a remote object believed to have no referencing image entry.
type Record struct {
	Filename string    `bson:"filename" json:"filename"`
	URL      string    `bson:"url,omitempty" json:"url,omitempty"`
	UserID   string    `bson:"userId,omitempty" json:"userId,omitempty"`
	Reason   string    `bson:"reason" json:"reason"`
	SeenAt   time.Time `bson:"seenAt" json:"seenAt"`
}

// Save persists (upsert by filename) an orphan record into the provided
// Mongo URI/db. If mongoURI is empty the function is a no-op.
func Save(ctx context.Context, mongoURI, databaseName string, rec *Record) error {
	if mongoURI == "" {
		return nil
	}
	client, err := database.ConnectMongo(ctx, mongoURI, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer client.Disconnect(ctx)

	col := client.Database(databaseName).Collection("orphaned_objects")
	filter := bson.M{"filename": rec.Filename}
	opts := options.Update().SetUpsert(true)
	if _, err := col.UpdateOne(ctx, filter, bson.M{"$set": rec}, opts); err != nil {
		return fmt.Errorf("save orphan record: %w", err)
	}
	return nil
}

// Load fetches an orphan record by filename. Returns nil when not found.
func Load(ctx context.Context, mongoURI, databaseName, filename string) (*Record, error) {
	if mongoURI == "" {
		return nil, nil
	}
	client, err := database.ConnectMongo(ctx, mongoURI, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	defer client.Disconnect(ctx)
	col := client.Database(databaseName).Collection("orphaned_objects")
	var rec Record
	if err := col.FindOne(ctx, bson.M{"filename": filename}).Decode(&rec); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Ledger adapts Save to the synchronizer's OrphanRecorder. Failures are
// logged, never propagated: the ledger must not mask the original fault.
type Ledger struct {
	MongoURI string
	Database string
}

func (l *Ledger) Record(ctx context.Context, userID string, refs []models.ImageRef, reason string) {
	now := time.Now().UTC()
	for _, ref := range refs {
		rec := &Record{Filename: ref.Filename, URL: ref.URL, UserID: userID, Reason: reason, SeenAt: now}
		if err := Save(ctx, l.MongoURI, l.Database, rec); err != nil {
			logger.Warnf("orphan ledger: failed to record %s: %v", ref.Filename, err)
		}
	}
}
