package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Defausha/warnbot/pkg/logger"
	"github.com/Defausha/warnbot/pkg/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	WarningsCollection   = "warnings"
	QuarantineCollection = "warnings_quarantine"
)

// QuarantinedEntry is a persisted warning that failed validation on load.
type QuarantinedEntry struct {
	ID     string    `bson:"_id" json:"id"`
	Source string    `bson:"source" json:"source"`
	Reason string    `bson:"reason" json:"reason"`
	Raw    bson.Raw  `bson:"raw" json:"-"`
	At     time.Time `bson:"at" json:"at"`
}

// WarningBackend stores one document per warning in the "warnings"
// collection, indexed by (user, timestamp).
type WarningBackend struct {
	coll       *mongo.Collection
	quarantine *mongo.Collection
	now        func() time.Time
}

// NewWarningBackend opens the collections on db.
func NewWarningBackend(db *Database) (*WarningBackend, error) {
	coll, err := db.Collection(WarningsCollection)
	if err != nil {
		return nil, err
	}
	quarantine, err := db.Collection(QuarantineCollection)
	if err != nil {
		return nil, err
	}
	return &WarningBackend{coll: coll, quarantine: quarantine, now: time.Now}, nil
}

// EnsureIndexes creates the (user, timestamp) index used by every query.
func (b *WarningBackend) EnsureIndexes(ctx context.Context) error {
	_, err := b.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	return err
}

func (b *WarningBackend) Append(ctx context.Context, rec models.WarningRecord) error {
	_, err := b.coll.InsertOne(ctx, rec)
	return err
}

// List decodes the user's warnings oldest first. Malformed documents are
// moved to the quarantine collection instead of being returned or fixed up.
func (b *WarningBackend) List(ctx context.Context, user string) ([]models.WarningRecord, error) {
	cursor, err := b.coll.Find(ctx, bson.M{"user": user}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []models.WarningRecord{}
	now := b.now()
	for cursor.Next(ctx) {
		raw := make(bson.Raw, len(cursor.Current))
		copy(raw, cursor.Current)

		rec, err := decodeWarning(raw, now)
		if err != nil {
			b.quarantineDoc(ctx, raw, err)
			continue
		}
		out = append(out, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *WarningBackend) DeleteUser(ctx context.Context, user string) (int, error) {
	res, err := b.coll.DeleteMany(ctx, bson.M{"user": user})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

func (b *WarningBackend) DeleteBefore(ctx context.Context, user string, cutoff time.Time) (int, error) {
	res, err := b.coll.DeleteMany(ctx, bson.M{
		"user":      user,
		"timestamp": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

func (b *WarningBackend) Users(ctx context.Context) ([]string, error) {
	values, err := b.coll.Distinct(ctx, "user", bson.M{})
	if err != nil {
		return nil, err
	}
	users := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			users = append(users, s)
		}
	}
	sort.Strings(users)
	return users, nil
}

func (b *WarningBackend) Total(ctx context.Context) (int, error) {
	n, err := b.coll.CountDocuments(ctx, bson.M{})
	return int(n), err
}

// Quarantined lists the quarantined entries, newest first.
func (b *WarningBackend) Quarantined(ctx context.Context) ([]QuarantinedEntry, error) {
	cursor, err := b.quarantine.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	out := []QuarantinedEntry{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Quarantine stores an entry that never made it into the warnings
// collection, e.g. a malformed legacy record.
func (b *WarningBackend) Quarantine(ctx context.Context, source string, raw bson.Raw, reason error) error {
	_, err := b.quarantine.InsertOne(ctx, QuarantinedEntry{
		ID:     uuid.New().String(),
		Source: source,
		Reason: reason.Error(),
		Raw:    raw,
		At:     b.now(),
	})
	return err
}

func (b *WarningBackend) quarantineDoc(ctx context.Context, raw bson.Raw, reason error) {
	log := logger.With(logger.Fields{"reason": reason.Error()})
	if err := b.Quarantine(ctx, WarningsCollection, raw, reason); err != nil {
		log.Error(fmt.Sprintf("No se pudo poner en cuarentena una advertencia: %v", err), "DB")
		return
	}
	if id, err := raw.LookupErr("_id"); err == nil {
		if _, err := b.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
			log.Error(fmt.Sprintf("No se pudo retirar la advertencia en cuarentena: %v", err), "DB")
			return
		}
	}
	log.Warn("Advertencia malformada movida a cuarentena", "DB")
}

// decodeWarning turns a stored document into a validated record.
func decodeWarning(raw bson.Raw, now time.Time) (models.WarningRecord, error) {
	var rec models.WarningRecord
	if err := bson.Unmarshal(raw, &rec); err != nil {
		return models.WarningRecord{}, fmt.Errorf("decode: %w", err)
	}
	if rec.ID == "" {
		return models.WarningRecord{}, fmt.Errorf("missing _id")
	}
	if err := rec.Validate(now); err != nil {
		return models.WarningRecord{}, err
	}
	return rec, nil
}
