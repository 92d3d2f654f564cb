package legacy

import (
	"strings"
	"testing"
	"time"

	"github.com/Defausha/warnbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	input := `{
		"Bob": [{"reason": "caps", "time": "2024-05-02 08:30:00"}],
		"alice": [
			{"reason": "spam", "time": "2024-05-01 10:00:00"},
			{"reason": "flood", "time": "2024-05-03 11:00:00"}
		]
	}`

	res, err := Parse(strings.NewReader(input), time.UTC, now)
	require.NoError(t, err)
	assert.Empty(t, res.Rejected)
	require.Len(t, res.Records, 3)

	assert.Equal(t, "bob", res.Records[0].User)
	assert.Equal(t, "alice", res.Records[1].User)
	assert.Equal(t, "spam", res.Records[1].Reason)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), res.Records[1].Timestamp)
	assert.Equal(t, "flood", res.Records[2].Reason)
}

func TestParseRejectsMalformedEntries(t *testing.T) {
	input := `{
		"alice": [
			{"reason": "ok", "time": "2024-05-01 10:00:00"},
			{"reason": "", "time": "2024-05-01 10:00:00"},
			{"reason": "no time"},
			{"reason": "bad time", "time": "yesterday"},
			{"reason": "future", "time": "2030-01-01 00:00:00"},
			"not an object"
		]
	}`

	res, err := Parse(strings.NewReader(input), time.UTC, now)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "ok", res.Records[0].Reason)

	require.Len(t, res.Rejected, 5)
	assert.ErrorIs(t, res.Rejected[0].Err, models.ErrEmptyReason)
	assert.ErrorIs(t, res.Rejected[1].Err, models.ErrMissingTime)
	assert.Error(t, res.Rejected[2].Err)
	assert.ErrorIs(t, res.Rejected[3].Err, models.ErrFutureTimestamp)
	assert.Equal(t, 5, res.Rejected[4].Index)
	assert.Equal(t, `"not an object"`, string(res.Rejected[4].Raw))
}

func TestParseBrokenDocument(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"alice": `), time.UTC, now)
	assert.Error(t, err)

	_, err = Parse(strings.NewReader(`["alice"]`), time.UTC, now)
	assert.Error(t, err)
}
