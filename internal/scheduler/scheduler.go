// Package scheduler periodically pulls remote rosters and exports every
// roster in the inbox to per-employee calendar files.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "rostercal/internal/log"
	"rostercal/internal/source"
)

// Scheduler runs the inbox job on a cron schedule. At most one run is
// active at a time; a tick that fires while the previous run is still
// working is skipped.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	exporter *Exporter
	fetcher  *source.Fetcher
	sources  []source.Source

	mu   sync.Mutex
	last Report
}

// New builds a Scheduler. fetcher may be nil when no remote sources are
// configured.
func New(spec string, loc *time.Location, exporter *Exporter, fetcher *source.Fetcher, sources []source.Source) *Scheduler {
	l := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)

	return &Scheduler{
		cron:     c,
		spec:     spec,
		exporter: exporter,
		fetcher:  fetcher,
		sources:  sources,
	}
}

// Start runs the job once immediately, then on every tick until ctx is
// canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.Run(ctx) }); err != nil {
		return fmt.Errorf("add inbox job %q: %w", s.spec, err)
	}

	s.Run(ctx)

	s.cron.Start()
	appLog.Info("scheduler started", "spec", s.spec, "sources", len(s.sources))

	<-ctx.Done()
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	appLog.Info("scheduler stopped")
}

// Run performs one fetch + export pass.
func (s *Scheduler) Run(ctx context.Context) Report {
	if ctx.Err() != nil {
		return Report{}
	}

	if s.fetcher != nil && len(s.sources) > 0 {
		results, errs := s.fetcher.FetchAll(ctx, s.sources)
		appLog.Debug("sources fetched", "ok", len(results), "failed", len(errs))
	}

	start := time.Now()
	rep, err := s.exporter.RunOnce(ctx)
	if err != nil {
		appLog.Error("inbox scan failed", err)
	}
	appLog.Info("inbox scan completed",
		"scanned", rep.Scanned,
		"exported", rep.Exported,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
		"duration", time.Since(start).String(),
	)

	s.mu.Lock()
	s.last = rep
	s.mu.Unlock()
	return rep
}

// Last returns the report of the most recent run.
func (s *Scheduler) Last() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// cronLogger routes cron's own messages to the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
