// Package janitor periodically prunes anonymous users that never
// completed a provider login. Lost cookies leave one throwaway user
// each; pruning bounds that storage cost without touching any user a
// real provider account points at.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cloudplayer/identity/internal/store"
)

// Janitor runs the prune job on a cron schedule.
type Janitor struct {
	pruner store.Pruner
	maxAge time.Duration
	log    *slog.Logger
	cron   *cron.Cron
}

// New creates a janitor pruning anonymous users older than maxAge.
func New(pruner store.Pruner, maxAge time.Duration, log *slog.Logger) *Janitor {
	if log == nil {
		log = slog.Default()
	}
	return &Janitor{
		pruner: pruner,
		maxAge: maxAge,
		log:    log,
		cron:   cron.New(),
	}
}

// Start schedules the prune job and starts the cron runner.
// The schedule accepts cron expressions and descriptors like "@hourly".
func (j *Janitor) Start(schedule string) error {
	_, err := j.cron.AddFunc(schedule, j.prune)
	if err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop stops the cron runner and waits for a running prune to finish.
func (j *Janitor) Stop(ctx context.Context) error {
	select {
	case <-j.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Janitor) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-j.maxAge)
	pruned, err := j.pruner.PruneAnonymousUsers(ctx, cutoff)
	if err != nil {
		j.log.Error("prune anonymous users", slog.String("error", err.Error()))
		return
	}
	if pruned > 0 {
		j.log.Info("pruned anonymous users", slog.Int("count", pruned))
	}
}
