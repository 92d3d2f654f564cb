package mqtt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Defausha/warnbot/internal/moderation"
	"github.com/Defausha/warnbot/pkg/models"
)

const (
	TopicListWarnings = "warnings/list"
	TopicTotal        = "warnings/total"
	TopicPolicyReload = "policy/reload"
	TopicSweep        = "sweep/run"

	requestTimeout = 5 * time.Second
	sweepTimeout   = 2 * time.Minute
)

// WarningReader is what the request handlers read from.
type WarningReader interface {
	Warnings(ctx context.Context, user string) ([]models.WarningRecord, error)
	TotalWarnings(ctx context.Context) (int, error)
}

// ListWarningsHandler answers {"user": "..."} with the user's warnings.
func ListWarningsHandler(r WarningReader) RequestHandler {
	return func(payload map[string]interface{}) (interface{}, error) {
		user, _ := payload["user"].(string)
		user = models.NormalizeUser(user)
		if user == "" {
			return nil, fmt.Errorf("user is required")
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		recs, err := r.Warnings(ctx, user)
		if err != nil {
			return nil, publicError(err)
		}
		return map[string]interface{}{
			"user":     user,
			"total":    len(recs),
			"warnings": recs,
		}, nil
	}
}

// TotalHandler answers with the number of warnings across all users.
func TotalHandler(r WarningReader) RequestHandler {
	return func(payload map[string]interface{}) (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		total, err := r.TotalWarnings(ctx)
		if err != nil {
			return nil, publicError(err)
		}
		return map[string]interface{}{"total": total}, nil
	}
}

// PolicyReloader re-reads the persisted retention policy.
type PolicyReloader interface {
	Load(ctx context.Context) error
	Get() models.RetentionPolicy
}

// PolicyReloadHandler makes the bot apply a policy saved by another process
// and answers with the policy now in force.
func PolicyReloadHandler(p PolicyReloader) RequestHandler {
	return func(payload map[string]interface{}) (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := p.Load(ctx); err != nil {
			return nil, publicError(err)
		}
		return p.Get(), nil
	}
}

// SweepRunner runs one retention sweep.
type SweepRunner interface {
	RunOnce(ctx context.Context) (moderation.SweepResult, error)
}

// SweepHandler runs a sweep inside the bot, where users with an open ban
// confirmation are known and skipped.
func SweepHandler(sw SweepRunner) RequestHandler {
	return func(payload map[string]interface{}) (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		res, err := sw.RunOnce(ctx)
		if err != nil && len(res.Removed) == 0 {
			return nil, publicError(err)
		}
		out := map[string]interface{}{"total": res.Total, "removed": res.Removed}
		if err != nil {
			out["partial"] = true
		}
		return out, nil
	}
}

// Handlers groups what the bot answers over MQTT.
type Handlers struct {
	Warnings WarningReader
	Policy   PolicyReloader
	Sweeper  SweepRunner
}

// RegisterHandlers subscribes every request topic the bot answers.
func RegisterHandlers(mc *MqttCommunicator, h Handlers) {
	mc.On(TopicListWarnings, ListWarningsHandler(h.Warnings))
	mc.On(TopicTotal, TotalHandler(h.Warnings))
	if h.Policy != nil {
		mc.On(TopicPolicyReload, PolicyReloadHandler(h.Policy))
	}
	if h.Sweeper != nil {
		mc.On(TopicSweep, SweepHandler(h.Sweeper))
	}
}

// publicError hides storage details from remote callers.
func publicError(err error) error {
	if moderation.IsStoreError(err) {
		return fmt.Errorf("storage unavailable")
	}
	msg := err.Error()
	if i := strings.Index(msg, ":"); i > 0 {
		msg = msg[:i]
	}
	return fmt.Errorf("%s", msg)
}
