package scheduler

import (
	"context"
	"time"

	billingdomain "github.com/ewceniza9009/cloudpallet-sub002/internal/billing/domain"
	obsmetrics "github.com/ewceniza9009/cloudpallet-sub002/internal/observability/metrics"
	"github.com/ewceniza9009/cloudpallet-sub002/pkg/log/ctxlogger"
	"github.com/ewceniza9009/cloudpallet-sub002/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

// jobRun is the bookkeeping of one job execution.
type jobRun struct {
	job       string
	id        string
	startedAt time.Time

	invoiced int
	skipped  int
	failed   int
	err      error
}

type jobRunKey struct{}

// beginRun tags ctx with a run record. The run id is the correlation id of
// every invoice run the job triggers.
func (s *Scheduler) beginRun(ctx context.Context, job string) (context.Context, *jobRun) {
	now := s.clock.Now()
	run := &jobRun{job: job, id: correlation.NewID(now), startedAt: now}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	return correlation.WithID(ctx, run.id), run
}

func runFromContext(ctx context.Context) *jobRun {
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

func (r *jobRun) record(res *billingdomain.PeriodResult) {
	if r == nil || res == nil {
		return
	}
	r.invoiced += len(res.Invoiced)
	r.skipped += len(res.Skipped)
	r.failed += len(res.Failed)
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return ctxlogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logRunStart(ctx context.Context, run *jobRun) {
	s.logger(ctx).Info("scheduler job started", zap.String("job", run.job))
}

func (s *Scheduler) logRunFinish(ctx context.Context, run *jobRun) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.Duration("duration", s.clock.Now().Sub(run.startedAt)),
		zap.Int("invoiced", run.invoiced),
		zap.Int("skipped", run.skipped),
		zap.Int("failed", run.failed),
	}
	if run.err != nil {
		fields = append(fields, zap.Error(run.err))
	}
	log := s.logger(ctx)
	if run.err != nil || run.failed > 0 {
		log.Warn("scheduler job finished with failures", fields...)
		return
	}
	log.Info("scheduler job finished", fields...)
}

func (s *Scheduler) logAccountFailure(ctx context.Context, job string, failure billingdomain.AccountFailure) {
	s.logger(ctx).Error("invoice run failed",
		zap.String("job", job),
		zap.String("account_id", failure.AccountID.String()),
		zap.String("error_type", obsmetrics.ClassifySchedulerJobReason(failure.Err)),
		zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(failure.Err)),
		zap.Error(failure.Err),
	)
}
