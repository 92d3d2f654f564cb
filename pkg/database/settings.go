package database

import (
	"context"
	"errors"

	"github.com/Defausha/warnbot/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SettingsCollection = "settings"
	retentionDocID     = "retention"
)

type retentionDoc struct {
	ID                     string `bson:"_id"`
	models.RetentionPolicy `bson:",inline"`
}

// SettingsStore persists runtime-editable settings as single documents.
type SettingsStore struct {
	coll *mongo.Collection
}

func NewSettingsStore(db *Database) (*SettingsStore, error) {
	coll, err := db.Collection(SettingsCollection)
	if err != nil {
		return nil, err
	}
	return &SettingsStore{coll: coll}, nil
}

// LoadRetention returns the saved policy; found is false when none exists.
func (s *SettingsStore) LoadRetention(ctx context.Context) (models.RetentionPolicy, bool, error) {
	var doc retentionDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": retentionDocID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.RetentionPolicy{}, false, nil
	}
	if err != nil {
		return models.RetentionPolicy{}, false, err
	}
	return doc.RetentionPolicy, true, nil
}

func (s *SettingsStore) SaveRetention(ctx context.Context, p models.RetentionPolicy) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": retentionDocID},
		bson.M{"$set": bson.M{
			"autoclear_days":   p.MaxAgeDays,
			"notify_autoclear": p.NotifyOnSweep,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}
