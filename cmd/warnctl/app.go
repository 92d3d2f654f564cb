package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/Defausha/warnbot/internal/bootstrap"
	"github.com/Defausha/warnbot/internal/moderation"
	"github.com/Defausha/warnbot/pkg/config"
	"github.com/Defausha/warnbot/pkg/legacy"
	"github.com/Defausha/warnbot/pkg/models"
	"github.com/Defausha/warnbot/pkg/mqtt"
	"github.com/urfave/cli/v2"
	"go.mongodb.org/mongo-driver/bson"
)

// cliActor is the moderator recorded for changes made from the command line.
var cliActor = moderation.Actor{ID: "warnctl", Moderator: true}

type opener func(ctx context.Context) (*bootstrap.Storage, error)

// requester reaches a running bot over MQTT.
type requester interface {
	Request(topic string, payload interface{}, timeout time.Duration) (interface{}, error)
}

const (
	reloadTimeout = 10 * time.Second
	sweepTimeout  = 3 * time.Minute
)

// workspace is what every action works against.
type workspace struct {
	storage *bootstrap.Storage
	svc     *moderation.Service
	policy  *moderation.Policy
	out     io.Writer
}

func (r *workspace) close() {
	r.svc.Tracker().Stop()
	r.storage.Close()
}

type app struct {
	cfg  *config.Config
	open opener
	// remote is nil when no broker is reachable.
	remote requester
	now    func() time.Time
}

func newApp(cfg *config.Config, open opener, remote requester) *cli.App {
	a := &app{cfg: cfg, open: open, remote: remote, now: time.Now}
	return a.cli()
}

func (a *app) cli() *cli.App {
	return &cli.App{
		Name:  "warnctl",
		Usage: "administration tool for the warnbot warnings store",
		// main decides the exit code
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "print every warning of a user",
				ArgsUsage: "<user>",
				Action:    a.with(runList),
			},
			{
				Name:      "clear",
				Usage:     "remove every warning of a user",
				ArgsUsage: "<user>",
				Action:    a.with(runClear),
			},
			{
				Name:  "sweep",
				Usage: "run one retention sweep now, inside the running bot when it is reachable",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "local",
						Usage: "sweep from this process even if the bot cannot be reached; pending ban confirmations are not protected",
					},
				},
				Action: a.with(a.runSweep),
			},
			{
				Name:      "import",
				Usage:     "import a legacy warnings.json file",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "timezone",
						Usage: "zone the legacy timestamps were written in",
						Value: a.cfg.LegacyTimezone,
					},
				},
				Action: a.with(a.runImport),
			},
			{
				Name:   "quarantine",
				Usage:  "list quarantined entries",
				Action: a.with(runQuarantine),
			},
			{
				Name:  "policy",
				Usage: "show or change the retention policy",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "print the retention policy in effect",
						Action: a.with(runPolicyShow),
					},
					{
						Name:  "set",
						Usage: "validate and persist a new retention policy",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "days", Usage: "retention horizon in days", Required: true},
							&cli.BoolFlag{Name: "notify", Usage: "announce each sweep in the broadcast channel", Value: true},
						},
						Action: a.with(a.runPolicySet),
					},
				},
			},
		},
	}
}

// with opens the storage around an action.
func (a *app) with(action func(c *cli.Context, r *workspace) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx := c.Context
		storage, err := a.open(ctx)
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot open storage: %v", err), 1)
		}

		policy := moderation.NewPolicy(a.cfg.Retention(), storage.Policies)
		if err := policy.Load(ctx); err != nil {
			storage.Close()
			return cli.Exit(fmt.Sprintf("cannot load retention policy: %v", err), 1)
		}

		r := &workspace{
			storage: storage,
			svc:     moderation.NewService(moderation.ServiceOptions{Store: moderation.NewStore(storage.Backend)}),
			policy:  policy,
			out:     c.App.Writer,
		}
		if r.out == nil {
			r.out = os.Stdout
		}
		defer r.close()
		return action(c, r)
	}
}

func requireArg(c *cli.Context, name string) (string, error) {
	v := c.Args().First()
	if v == "" {
		return "", cli.Exit(fmt.Sprintf("missing %s argument", name), 2)
	}
	return v, nil
}

func runList(c *cli.Context, r *workspace) error {
	user, err := requireArg(c, "user")
	if err != nil {
		return err
	}
	recs, err := r.svc.Warnings(c.Context, user)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintf(r.out, "%s has no warnings\n", models.NormalizeUser(user))
		return nil
	}
	for i, rec := range recs {
		fmt.Fprintf(r.out, "%d. %s  %s  (by %s, id %s)\n", i+1, rec.Timestamp.Format(legacy.TimeLayout), rec.Reason, rec.Moderator, rec.ID)
	}
	return nil
}

func runClear(c *cli.Context, r *workspace) error {
	user, err := requireArg(c, "user")
	if err != nil {
		return err
	}
	n, err := r.svc.Clear(c.Context, cliActor, user)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "removed %d warnings for %s\n", n, models.NormalizeUser(user))
	return nil
}

func (a *app) runSweep(c *cli.Context, r *workspace) error {
	if a.remote != nil {
		data, err := a.remote.Request(mqtt.TopicSweep, nil, sweepTimeout)
		if err == nil {
			printRemoteSweep(r.out, data)
			return nil
		}
		if !c.Bool("local") {
			return cli.Exit(fmt.Sprintf("running bot not reached: %v (use --local to sweep from here)", err), 1)
		}
		fmt.Fprintf(r.out, "running bot not reached: %v\n", err)
	}
	fmt.Fprintln(r.out, "sweeping locally: pending ban confirmations held by the bot are not protected")

	sweeper := moderation.NewSweeper(moderation.SweeperOptions{
		Store:  r.svc.Store(),
		Policy: r.policy,
	})
	res, err := sweeper.RunOnce(c.Context)
	printRemoved(r.out, res.Removed)
	fmt.Fprintf(r.out, "removed %d warnings older than %d days\n", res.Total, r.policy.Get().MaxAgeDays)
	return err
}

func printRemoved(out io.Writer, removed map[string]int) {
	users := make([]string, 0, len(removed))
	for user := range removed {
		users = append(users, user)
	}
	sort.Strings(users)
	for _, user := range users {
		fmt.Fprintf(out, "%s: %d\n", user, removed[user])
	}
}

// printRemoteSweep renders the bot's answer, decoded from JSON.
func printRemoteSweep(out io.Writer, data interface{}) {
	m, _ := data.(map[string]interface{})
	removed := map[string]int{}
	if raw, ok := m["removed"].(map[string]interface{}); ok {
		for user, n := range raw {
			if f, ok := n.(float64); ok {
				removed[user] = int(f)
			}
		}
	}
	total, _ := m["total"].(float64)

	printRemoved(out, removed)
	fmt.Fprintf(out, "removed %d warnings (swept by the running bot)\n", int(total))
	if partial, _ := m["partial"].(bool); partial {
		fmt.Fprintln(out, "some users failed and will be retried on the next sweep")
	}
}

func (a *app) runImport(c *cli.Context, r *workspace) error {
	path, err := requireArg(c, "file")
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(c.String("timezone"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("unknown timezone %q", c.String("timezone")), 2)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	now := a.now()
	res, err := legacy.Parse(f, loc, now)
	if err != nil {
		return err
	}

	for _, rej := range res.Rejected {
		fmt.Fprintf(r.out, "rejected %s[%d]: %v\n", rej.User, rej.Index, rej.Err)
		if err := quarantineLegacy(c.Context, r.storage, rej); err != nil {
			return fmt.Errorf("quarantine %s[%d]: %w", rej.User, rej.Index, err)
		}
	}

	n, err := r.svc.Import(c.Context, res.Records, now)
	fmt.Fprintf(r.out, "imported %d warnings, %d rejected\n", n, len(res.Rejected))
	return err
}

// quarantineLegacy keeps a rejected legacy entry for later review. The
// memory backend has nowhere to keep it, so it is only reported.
func quarantineLegacy(ctx context.Context, s *bootstrap.Storage, rej legacy.Rejected) error {
	if s.Warnings == nil {
		return nil
	}
	raw, err := bson.Marshal(bson.M{"user": rej.User, "index": rej.Index, "json": string(rej.Raw)})
	if err != nil {
		return err
	}
	return s.Warnings.Quarantine(ctx, "legacy", bson.Raw(raw), rej.Err)
}

func runQuarantine(c *cli.Context, r *workspace) error {
	if r.storage.Warnings == nil {
		fmt.Fprintln(r.out, "quarantine is only kept by the mongo backend")
		return nil
	}
	entries, err := r.storage.Warnings.Quarantined(c.Context)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(r.out, "%s  %s  %s: %s\n", e.At.Format(legacy.TimeLayout), e.ID, e.Source, e.Reason)
	}
	fmt.Fprintf(r.out, "%d quarantined entries\n", len(entries))
	return nil
}

func runPolicyShow(c *cli.Context, r *workspace) error {
	p := r.policy.Get()
	fmt.Fprintf(r.out, "autoclear_days: %d\nnotify_autoclear: %t\n", p.MaxAgeDays, p.NotifyOnSweep)
	return nil
}

func (a *app) runPolicySet(c *cli.Context, r *workspace) error {
	p := models.RetentionPolicy{MaxAgeDays: c.Int("days"), NotifyOnSweep: c.Bool("notify")}
	if err := r.policy.Update(c.Context, p); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := runPolicyShow(c, r); err != nil {
		return err
	}

	if a.remote == nil {
		return nil
	}
	if _, err := a.remote.Request(mqtt.TopicPolicyReload, nil, reloadTimeout); err != nil {
		fmt.Fprintf(r.out, "running bot not reached (%v); it applies the policy at its next sweep\n", err)
		return nil
	}
	fmt.Fprintln(r.out, "applied to the running bot")
	return nil
}
