package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Defausha/warnbot/internal/bootstrap"
	"github.com/Defausha/warnbot/internal/moderation"
	"github.com/Defausha/warnbot/pkg/config"
	"github.com/Defausha/warnbot/pkg/mqtt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const legacyFile = `{
  "Alice": [
    {"reason": "spam", "time": "2024-05-01 10:00:00"},
    {"reason": "", "time": "2024-05-02 10:00:00"}
  ]
}`

type harness struct {
	storage *bootstrap.Storage
	out     bytes.Buffer
	app     *cli.App
}

type fakeRemote struct {
	topics  []string
	answers map[string]interface{}
	err     error
}

func (f *fakeRemote) Request(topic string, payload interface{}, timeout time.Duration) (interface{}, error) {
	f.topics = append(f.topics, topic)
	if f.err != nil {
		return nil, f.err
	}
	return f.answers[topic], nil
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithRemote(t, nil)
}

func newHarnessWithRemote(t *testing.T, remote requester) *harness {
	t.Helper()
	h := &harness{storage: &bootstrap.Storage{Backend: moderation.NewMemBackend()}}
	cfg := &config.Config{StoreBackend: bootstrap.BackendMemory, AutoClearDays: 30, NotifyAutoClear: true, LegacyTimezone: "UTC"}
	h.app = newApp(cfg, func(ctx context.Context) (*bootstrap.Storage, error) {
		return h.storage, nil
	}, remote)
	h.app.Writer = &h.out
	return h
}

func (h *harness) run(args ...string) (string, error) {
	h.out.Reset()
	err := h.app.Run(append([]string{"warnctl"}, args...))
	return h.out.String(), err
}

func writeLegacy(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warnings.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyFile), 0o600))
	return path
}

func TestImportThenList(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("import", "--timezone", "UTC", writeLegacy(t))
	require.NoError(t, err)
	assert.Contains(t, out, "rejected Alice[1]")
	assert.Contains(t, out, "imported 1 warnings, 1 rejected")

	out, err = h.run("list", "@Alice")
	require.NoError(t, err)
	assert.Contains(t, out, "1. 2024-05-01 10:00:00  spam")
}

func TestImportIsRepeatable(t *testing.T) {
	h := newHarness(t)
	path := writeLegacy(t)

	_, err := h.run("import", path)
	require.NoError(t, err)
	out, err := h.run("import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 0 warnings, 1 rejected")

	out, err = h.run("list", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "spam"))
}

func TestClear(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("import", writeLegacy(t))
	require.NoError(t, err)

	out, err := h.run("clear", "alice")
	require.NoError(t, err)
	assert.Equal(t, "removed 1 warnings for alice\n", out)

	out, err = h.run("list", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice has no warnings\n", out)
}

func TestSweepRemovesOldImports(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("import", writeLegacy(t))
	require.NoError(t, err)

	out, err := h.run("sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "sweeping locally")
	assert.Contains(t, out, "alice: 1")
	assert.Contains(t, out, "removed 1 warnings older than 30 days")
}

func TestSweepRunsInsideTheBot(t *testing.T) {
	remote := &fakeRemote{answers: map[string]interface{}{
		mqtt.TopicSweep: map[string]interface{}{
			"total":   float64(3),
			"removed": map[string]interface{}{"bob": float64(1), "alice": float64(2)},
		},
	}}
	h := newHarnessWithRemote(t, remote)
	_, err := h.run("import", writeLegacy(t))
	require.NoError(t, err)

	out, err := h.run("sweep")
	require.NoError(t, err)
	assert.Equal(t, []string{mqtt.TopicSweep}, remote.topics)
	assert.Equal(t, "alice: 2\nbob: 1\nremoved 3 warnings (swept by the running bot)\n", out)

	out, err = h.run("list", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "spam", "nothing was pruned from this process")
}

func TestSweepRefusesLocalRunWhenBotIsUnreachable(t *testing.T) {
	remote := &fakeRemote{err: errors.New("timeout")}
	h := newHarnessWithRemote(t, remote)
	_, err := h.run("import", writeLegacy(t))
	require.NoError(t, err)

	_, err = h.run("sweep")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--local")

	out, err := h.run("list", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "spam")

	out, err = h.run("sweep", "--local")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 1 warnings older than 30 days")
}

func TestPolicyCommands(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("policy", "show")
	require.NoError(t, err)
	assert.Equal(t, "autoclear_days: 30\nnotify_autoclear: true\n", out)

	out, err = h.run("policy", "set", "--days", "7", "--notify=false")
	require.NoError(t, err)
	assert.Equal(t, "autoclear_days: 7\nnotify_autoclear: false\n", out)

	_, err = h.run("policy", "set", "--days", "0")
	assert.Error(t, err)
}

func TestPolicySetReloadsRunningBot(t *testing.T) {
	remote := &fakeRemote{}
	h := newHarnessWithRemote(t, remote)

	out, err := h.run("policy", "set", "--days", "14")
	require.NoError(t, err)
	assert.Equal(t, []string{mqtt.TopicPolicyReload}, remote.topics)
	assert.Contains(t, out, "applied to the running bot")

	remote.err = errors.New("timeout")
	out, err = h.run("policy", "set", "--days", "10")
	require.NoError(t, err, "the policy is saved even if the bot is down")
	assert.Contains(t, out, "autoclear_days: 10")
	assert.Contains(t, out, "next sweep")
}

func TestMissingArgument(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("list")
	require.Error(t, err)
	var exit cli.ExitCoder
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 2, exit.ExitCode())
}

func TestQuarantineNeedsMongo(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("quarantine")
	require.NoError(t, err)
	assert.Contains(t, out, "mongo backend")
}
