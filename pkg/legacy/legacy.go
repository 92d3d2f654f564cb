// Package legacy reads the warnings file written by the previous bot:
//
//	{"alice": [{"reason": "spam", "time": "2024-05-01 10:00:00"}]}
//
// Entries that fail to parse or validate are returned separately so the
// caller can quarantine them. They are never repaired.
package legacy

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/Defausha/warnbot/pkg/models"
	"github.com/goccy/go-json"
)

// TimeLayout is the timestamp format of the legacy file.
const TimeLayout = "2006-01-02 15:04:05"

type entry struct {
	Reason string `json:"reason"`
	Time   string `json:"time"`
}

// Rejected is a legacy entry that could not be imported.
type Rejected struct {
	User  string          `json:"user"`
	Index int             `json:"index"`
	Raw   json.RawMessage `json:"raw"`
	Err   error           `json:"-"`
}

// Result holds the outcome of Parse. Records are ordered by user and then
// by their position in the file.
type Result struct {
	Records  []models.WarningRecord
	Rejected []Rejected
}

// Parse decodes a legacy warnings file. Timestamps carry no zone and are
// read in loc. Only a structurally broken document is an error.
func Parse(r io.Reader, loc *time.Location, now time.Time) (Result, error) {
	if loc == nil {
		loc = time.Local
	}

	var doc map[string][]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Result{}, fmt.Errorf("legacy: decode warnings file: %w", err)
	}

	users := make([]string, 0, len(doc))
	for u := range doc {
		users = append(users, u)
	}
	sort.Strings(users)

	res := Result{Records: []models.WarningRecord{}}
	for _, rawUser := range users {
		user := models.NormalizeUser(rawUser)
		for i, raw := range doc[rawUser] {
			rec, err := parseEntry(user, raw, loc, now)
			if err != nil {
				res.Rejected = append(res.Rejected, Rejected{User: rawUser, Index: i, Raw: raw, Err: err})
				continue
			}
			res.Records = append(res.Records, rec)
		}
	}
	return res, nil
}

func parseEntry(user string, raw json.RawMessage, loc *time.Location, now time.Time) (models.WarningRecord, error) {
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return models.WarningRecord{}, fmt.Errorf("decode entry: %w", err)
	}
	if e.Time == "" {
		return models.WarningRecord{}, models.ErrMissingTime
	}
	ts, err := time.ParseInLocation(TimeLayout, e.Time, loc)
	if err != nil {
		return models.WarningRecord{}, fmt.Errorf("parse time %q: %w", e.Time, err)
	}

	rec := models.WarningRecord{User: user, Reason: e.Reason, Timestamp: ts}
	if err := rec.Validate(now); err != nil {
		return models.WarningRecord{}, err
	}
	return rec, nil
}
