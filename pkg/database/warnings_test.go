package database

import (
	"testing"
	"time"

	"github.com/Defausha/warnbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var decodeNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func marshalDoc(t *testing.T, doc interface{}) bson.Raw {
	t.Helper()
	data, err := bson.Marshal(doc)
	require.NoError(t, err)
	return bson.Raw(data)
}

func TestDecodeWarning(t *testing.T) {
	raw := marshalDoc(t, models.WarningRecord{
		ID:        "w1",
		User:      "alice",
		Reason:    "spam",
		Moderator: "mod1",
		Timestamp: decodeNow.Add(-time.Hour),
	})

	rec, err := decodeWarning(raw, decodeNow)
	require.NoError(t, err)
	assert.Equal(t, "w1", rec.ID)
	assert.Equal(t, "alice", rec.User)
	assert.Equal(t, "spam", rec.Reason)
	assert.True(t, rec.Timestamp.Equal(decodeNow.Add(-time.Hour)))
}

func TestDecodeWarningRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  bson.M
		want error
	}{
		{"missing reason", bson.M{"_id": "w1", "user": "alice", "timestamp": decodeNow}, models.ErrEmptyReason},
		{"missing timestamp", bson.M{"_id": "w1", "user": "alice", "reason": "spam"}, models.ErrMissingTime},
		{"future timestamp", bson.M{"_id": "w1", "user": "alice", "reason": "spam", "timestamp": decodeNow.Add(time.Hour)}, models.ErrFutureTimestamp},
		{"missing user", bson.M{"_id": "w1", "reason": "spam", "timestamp": decodeNow}, models.ErrEmptyUser},
		{"missing id", bson.M{"user": "alice", "reason": "spam", "timestamp": decodeNow}, nil},
		{"wrong type", bson.M{"_id": "w1", "user": "alice", "reason": "spam", "timestamp": "yesterday"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeWarning(marshalDoc(t, tt.doc), decodeNow)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestCollectionBeforeConnect(t *testing.T) {
	db := NewDatabase()
	_, err := db.Collection(WarningsCollection)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = NewWarningBackend(db)
	assert.ErrorIs(t, err, ErrNotConnected)

	status, ok := db.GetStatus()
	assert.False(t, ok)
	assert.Equal(t, "🔴 Desconectada", status)
}
