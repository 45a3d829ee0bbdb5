package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper is the part of the loan engine the scheduler drives
type Sweeper interface {
	SweepOverdue(ctx context.Context) (*SweepResult, error)
}

// OverdueScheduler runs the overdue sweep on a cron schedule
type OverdueScheduler struct {
	sweeper Sweeper
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	log     *zap.Logger
}

// NewOverdueScheduler parses spec (standard 5-field cron, evaluated in loc)
func NewOverdueScheduler(sweeper Sweeper, spec string, loc *time.Location, log *zap.Logger) (*OverdueScheduler, error) {
	if loc == nil {
		loc = time.UTC
	}

	s := &OverdueScheduler{
		sweeper: sweeper,
		spec:    spec,
		timeout: 5 * time.Minute,
		log:     log.Named("scheduler"),
	}

	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger), cron.Recover(cron.DiscardLogger)),
	)
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, err
	}

	return s, nil
}

// Start launches the scheduler goroutine
func (s *OverdueScheduler) Start() {
	s.cron.Start()
	s.log.Info("overdue sweep scheduled", zap.String("cron", s.spec))
}

// Stop waits for a running sweep to finish or ctx to expire
func (s *OverdueScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("overdue scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("overdue scheduler stop timed out")
	}
}

func (s *OverdueScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.sweeper.SweepOverdue(ctx)
	if err != nil {
		s.log.Error("overdue sweep failed", zap.Error(err))
		return
	}

	s.log.Debug("overdue sweep run",
		zap.Int("overdue", result.Overdue),
		zap.Int("updated", result.Updated),
		zap.Duration("took", time.Since(start)),
	)
}
