package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	billingdomain "github.com/ewceniza9009/cloudpallet-sub002/internal/billing/domain"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/clock"
	obsmetrics "github.com/ewceniza9009/cloudpallet-sub002/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobMonthlyInvoice = "monthly_invoice"

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	BillingSvc billingdomain.Service
	Clock      clock.Clock
	Config     Config `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	billingSvc billingdomain.Service
	metrics    *obsmetrics.SchedulerMetrics

	mu            sync.Mutex
	lastCompleted time.Time
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.BillingSvc == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		billingSvc: p.BillingSvc,
		metrics:    obsmetrics.Scheduler(),
	}, nil
}

// PreviousMonth returns the calendar month before now as [start, end) in UTC.
func PreviousMonth(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, -1, 0), end
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.beginRun(ctx, name)
	s.logRunStart(ctx, run)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	run.err = err
	s.logRunFinish(ctx, run)
	if err == nil {
		return nil
	}

	// deadline is a soft timeout; the next tick picks up the remaining accounts
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		s.logger(ctx).Warn("scheduler job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce invoices the previous calendar month once it has settled. A month
// that completed without failures is not run again.
func (s *Scheduler) RunOnce(parent context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}

	now := s.clock.Now()
	start, end := PreviousMonth(now)
	if now.Before(end.Add(s.cfg.SettleDelay)) {
		return nil
	}

	s.mu.Lock()
	done := s.lastCompleted.Equal(start)
	s.mu.Unlock()
	if done {
		return nil
	}

	return s.runJob(parent, jobMonthlyInvoice, s.cfg.Timeout, func(ctx context.Context) error {
		return s.MonthlyInvoiceJob(ctx, start, end)
	})
}

func (s *Scheduler) MonthlyInvoiceJob(ctx context.Context, start, end time.Time) error {
	run := runFromContext(ctx)

	res, err := s.billingSvc.RunPeriod(ctx, start, end)
	if res != nil {
		run.record(res)
		s.metrics.AddAccountOutcome(jobMonthlyInvoice, obsmetrics.AccountOutcomeInvoiced, len(res.Invoiced))
		s.metrics.AddAccountOutcome(jobMonthlyInvoice, obsmetrics.AccountOutcomeSkipped, len(res.Skipped))
		s.metrics.AddAccountOutcome(jobMonthlyInvoice, obsmetrics.AccountOutcomeFailed, len(res.Failed))
		for _, failure := range res.Failed {
			s.logAccountFailure(ctx, jobMonthlyInvoice, failure)
		}
	}
	if err != nil {
		return err
	}
	if err := res.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastCompleted = start
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
