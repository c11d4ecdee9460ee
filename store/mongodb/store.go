// Package mongodb implements the subsystem's storage collaborators on MongoDB
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/interfaces"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// Collection names
const (
	CollectionSecrets  = "secrets"
	CollectionAuditLog = "audit_log"
	CollectionSettings = "privacy_settings"
	CollectionData     = "app_data"

	settingsID = "1"
)

// Connect opens a client and verifies the connection
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// SecretStore keeps one document per account
type SecretStore struct {
	coll *mongo.Collection
}

func NewSecretStore(db *mongo.Database) *SecretStore {
	return &SecretStore{coll: db.Collection(CollectionSecrets)}
}

func (s *SecretStore) Get(ctx context.Context, account string) ([]byte, error) {
	var result struct {
		Secret []byte `bson:"secret"`
	}
	err := s.coll.FindOne(ctx, bson.M{"_id": account}, options.FindOne().SetProjection(bson.M{"secret": 1})).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrSecretNotFound
		}
		return nil, fmt.Errorf("failed to get secret: %w", err)
	}
	return result.Secret, nil
}

func (s *SecretStore) Put(ctx context.Context, account string, secret []byte) error {
	_, err := s.coll.UpdateOne(
		ctx,
		bson.M{"_id": account},
		bson.M{"$set": bson.M{"secret": secret, "updatedAt": time.Now().UTC()}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}
	return nil
}

func (s *SecretStore) Update(ctx context.Context, account string, secret []byte) error {
	res, err := s.coll.UpdateOne(
		ctx,
		bson.M{"_id": account},
		bson.M{"$set": bson.M{"secret": secret, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update secret: %w", err)
	}
	if res.MatchedCount == 0 {
		return interfaces.ErrSecretNotFound
	}
	return nil
}

// LogSink appends audit blobs as documents ordered by _id
type LogSink struct {
	coll *mongo.Collection
}

func NewLogSink(db *mongo.Database) *LogSink {
	return &LogSink{coll: db.Collection(CollectionAuditLog)}
}

func (l *LogSink) Append(ctx context.Context, blob []byte) error {
	_, err := l.coll.InsertOne(ctx, bson.M{
		"_id":       bson.NewObjectID(),
		"blob":      blob,
		"createdAt": time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to append audit blob: %w", err)
	}
	return nil
}

// ReadAll returns every blob in insertion order
func (l *LogSink) ReadAll(ctx context.Context) ([][]byte, error) {
	cursor, err := l.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	var docs []struct {
		Blob []byte `bson:"blob"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode audit log: %w", err)
	}

	blobs := make([][]byte, len(docs))
	for i, d := range docs {
		blobs[i] = d.Blob
	}
	return blobs, nil
}

// DataStore deletes application records tagged with a dataType field
type DataStore struct {
	coll *mongo.Collection
}

// NewDataStore uses collection, or CollectionData when empty
func NewDataStore(db *mongo.Database, collection string) *DataStore {
	if collection == "" {
		collection = CollectionData
	}
	return &DataStore{coll: db.Collection(collection)}
}

func (d *DataStore) DeleteAll(ctx context.Context, dataType string) (int, error) {
	res, err := d.coll.DeleteMany(ctx, bson.M{"dataType": dataType})
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s records: %w", dataType, err)
	}
	log.Debug().Str("dataType", dataType).Int64("deleted", res.DeletedCount).Msg("Deleted records")
	return int(res.DeletedCount), nil
}

// SettingsStore keeps the privacy settings in a single document
type SettingsStore struct {
	coll *mongo.Collection
}

func NewSettingsStore(db *mongo.Database) *SettingsStore {
	return &SettingsStore{coll: db.Collection(CollectionSettings)}
}

func (s *SettingsStore) LoadSettings(ctx context.Context) (types.PrivacySettings, bool, error) {
	var result struct {
		Settings types.PrivacySettings `bson:"settings"`
	}
	err := s.coll.FindOne(ctx, bson.M{"_id": settingsID}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.PrivacySettings{}, false, nil
		}
		return types.PrivacySettings{}, false, fmt.Errorf("failed to load privacy settings: %w", err)
	}
	return result.Settings, true, nil
}

func (s *SettingsStore) SaveSettings(ctx context.Context, settings types.PrivacySettings) error {
	_, err := s.coll.UpdateOne(
		ctx,
		bson.M{"_id": settingsID},
		bson.M{"$set": bson.M{"settings": settings, "updatedAt": time.Now().UTC()}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save privacy settings: %w", err)
	}
	return nil
}
