package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	accountdomain "github.com/ewceniza9009/cloudpallet-sub002/internal/account/domain"
	billingdomain "github.com/ewceniza9009/cloudpallet-sub002/internal/billing/domain"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/charge"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/clock"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/config"
	invoicedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/invoice/domain"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/observability/logger"
	obsmetrics "github.com/ewceniza9009/cloudpallet-sub002/internal/observability/metrics"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/runlock"
	usagedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/usage/domain"
	"github.com/ewceniza9009/cloudpallet-sub002/pkg/log/ctxlogger"
	"github.com/ewceniza9009/cloudpallet-sub002/pkg/telemetry/correlation"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const tracerName = "coldstore/billing"

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	AccountSvc accountdomain.Service
	Aggregator usagedomain.Aggregator
	Resolver   *charge.Resolver
	InvoiceSvc invoicedomain.Service
	Locker     runlock.Locker
	Tiers      *config.TierConfigHolder
	Clock      clock.Clock
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	accountSvc accountdomain.Service
	aggregator usagedomain.Aggregator
	resolver   *charge.Resolver
	invoiceSvc invoicedomain.Service
	locker     runlock.Locker
	tiers      *config.TierConfigHolder
	clock      clock.Clock
	metrics    *obsmetrics.Metrics
	tracer     trace.Tracer
	lockTTL    time.Duration
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		log:        p.Log.Named("billing.service"),
		accountSvc: p.AccountSvc,
		aggregator: p.Aggregator,
		resolver:   p.Resolver,
		invoiceSvc: p.InvoiceSvc,
		locker:     p.Locker,
		tiers:      p.Tiers,
		clock:      p.Clock,
		metrics:    p.Metrics,
		tracer:     otel.Tracer(tracerName),
		lockTTL:    billingdomain.DefaultLockTTL,
	}
}

// Run produces, finalizes and persists the invoice for one account and period.
// Nothing is persisted unless every stage succeeds.
func (s *Service) Run(ctx context.Context, req billingdomain.RunRequest) (inv *invoicedomain.Invoice, err error) {
	ctx, _ = correlation.Ensure(ctx, s.clock.Now())
	ctx, span := s.tracer.Start(ctx, "billing.run", trace.WithAttributes(
		attribute.String("account_id", req.AccountID.String()),
		attribute.String("period_start", req.PeriodStart.UTC().Format(time.RFC3339)),
		attribute.String("period_end", req.PeriodEnd.UTC().Format(time.RFC3339)),
	))
	started := time.Now()
	defer func() {
		outcome := outcomeFor(err)
		s.metrics.RecordBillingRun(ctx, outcome, time.Since(started))
		if err != nil && outcome == billingdomain.OutcomeFailed {
			span.RecordError(err)
			span.SetStatus(codes.Error, "billing run failed")
		}
		span.End()
	}()

	if req.AccountID == 0 {
		return nil, billingdomain.ErrInvalidAccount
	}
	start, end := req.PeriodStart.UTC(), req.PeriodEnd.UTC()
	if !end.After(start) {
		return nil, billingdomain.ErrInvalidPeriod
	}

	log := logger.WithPeriod(logger.WithAccount(ctxlogger.WithContext(ctx, s.log), req.AccountID.String()), start, end)

	account, err := s.accountSvc.Get(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, accountdomain.ErrNotFound) {
			return nil, billingdomain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	if !account.IsActive() {
		return nil, billingdomain.ErrAccountNotFound
	}

	key := billingdomain.LockKey(req.AccountID, start, end)
	token, ok, err := s.locker.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		log.Info("billing run already in progress")
		return nil, billingdomain.ErrRunInProgress
	}
	defer func() {
		if releaseErr := s.locker.Release(context.WithoutCancel(ctx), key, token); releaseErr != nil {
			log.Warn("failed to release run lock", zap.Error(releaseErr))
		}
	}()

	existing, err := s.invoiceSvc.FindForPeriod(ctx, req.AccountID, start, end)
	if err != nil {
		return nil, fmt.Errorf("check existing invoice: %w", err)
	}
	if existing != nil {
		log.Info("invoice already exists for period", zap.String("invoice_id", existing.ID.String()))
		return nil, billingdomain.ErrInvoiceExists
	}

	asOf := s.clock.Now().UTC()
	if req.AsOf != nil {
		asOf = req.AsOf.UTC()
	}
	tiers := s.tiers.Get()

	buckets, err := s.aggregate(ctx, usagedomain.AggregateRequest{
		AccountID:   req.AccountID,
		PeriodStart: start,
		PeriodEnd:   end,
		Tiers:       tiers,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate usage: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	priced, err := s.resolve(ctx, charge.ResolveInput{
		AccountID: req.AccountID,
		AsOf:      asOf,
		Buckets:   buckets,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve charges: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inv, err = s.invoiceSvc.Build(ctx, invoicedomain.BuildRequest{
		AccountID:   req.AccountID,
		PeriodStart: start,
		PeriodEnd:   end,
		AsOf:        asOf,
		Lines:       lineInputs(priced.Charges),
		Metadata:    runMetadata(account, priced.Dropped),
	})
	if err != nil {
		return nil, fmt.Errorf("build invoice: %w", err)
	}
	if err := inv.Finalize(s.clock.Now()); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		log.Warn("billing run cancelled before persist", zap.Error(err))
		return nil, err
	}
	if err := s.invoiceSvc.Persist(ctx, inv); err != nil {
		if errors.Is(err, invoicedomain.ErrInvoiceExists) {
			return nil, billingdomain.ErrInvoiceExists
		}
		return nil, fmt.Errorf("persist invoice: %w", err)
	}

	s.recordResult(ctx, inv, priced)
	log.Info("invoice finalized",
		zap.String("invoice_id", inv.ID.String()),
		zap.Time("as_of", asOf),
		zap.Int("lines", len(inv.Lines)),
		zap.Int("dropped_buckets", len(priced.Dropped)),
		zap.String("total_amount", inv.TotalAmount.StringFixed(2)),
	)
	return inv, nil
}

func (s *Service) aggregate(ctx context.Context, req usagedomain.AggregateRequest) ([]usagedomain.Bucket, error) {
	ctx, span := s.tracer.Start(ctx, "billing.aggregate")
	defer span.End()

	buckets, err := s.aggregator.Aggregate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("buckets", len(buckets)))
	return buckets, nil
}

func (s *Service) resolve(ctx context.Context, in charge.ResolveInput) (*charge.Result, error) {
	ctx, span := s.tracer.Start(ctx, "billing.resolve")
	defer span.End()

	res, err := s.resolver.Resolve(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("charges", len(res.Charges)),
		attribute.Int("dropped", len(res.Dropped)),
	)
	return res, nil
}

func (s *Service) recordResult(ctx context.Context, inv *invoicedomain.Invoice, priced *charge.Result) {
	perCategory := lo.CountValuesBy(priced.Charges, func(c charge.Charge) string {
		return string(c.Category)
	})
	for category, count := range perCategory {
		s.metrics.RecordInvoiceLines(ctx, category, count)
	}
	for _, d := range priced.Dropped {
		s.metrics.RecordDroppedBucket(ctx, string(d.Bucket.Category), d.Reason)
	}
	s.metrics.RecordInvoicedAmount(ctx, inv.TotalAmount.InexactFloat64())
}

// RunPeriod invoices every active account for [start, end). Per-account
// failures are collected; only cancellation stops the batch.
func (s *Service) RunPeriod(ctx context.Context, start, end time.Time) (*billingdomain.PeriodResult, error) {
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return nil, billingdomain.ErrInvalidPeriod
	}

	ctx, _ = correlation.Ensure(ctx, s.clock.Now())
	log := logger.WithPeriod(ctxlogger.WithContext(ctx, s.log), start, end)

	accounts, err := s.accountSvc.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}

	asOf := s.clock.Now().UTC()
	result := &billingdomain.PeriodResult{PeriodStart: start, PeriodEnd: end}
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		_, err := s.Run(ctx, billingdomain.RunRequest{
			AccountID:   account.ID,
			PeriodStart: start,
			PeriodEnd:   end,
			AsOf:        &asOf,
		})
		switch {
		case err == nil:
			result.Invoiced = append(result.Invoiced, account.ID)
		case errors.Is(err, billingdomain.ErrInvoiceExists), errors.Is(err, billingdomain.ErrRunInProgress):
			result.Skipped = append(result.Skipped, account.ID)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return result, err
		default:
			log.Error("billing run failed", zap.String("account_id", account.ID.String()), zap.Error(err))
			result.Failed = append(result.Failed, billingdomain.AccountFailure{AccountID: account.ID, Err: err})
		}
	}

	log.Info("period run complete",
		zap.Int("accounts", len(accounts)),
		zap.Int("invoiced", len(result.Invoiced)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return billingdomain.OutcomeInvoiced
	case errors.Is(err, billingdomain.ErrInvoiceExists):
		return billingdomain.OutcomeSkipped
	case errors.Is(err, billingdomain.ErrRunInProgress):
		return billingdomain.OutcomeInProgress
	default:
		return billingdomain.OutcomeFailed
	}
}

func lineInputs(charges []charge.Charge) []invoicedomain.LineInput {
	return lo.Map(charges, func(c charge.Charge, _ int) invoicedomain.LineInput {
		return invoicedomain.LineInput{
			Kind:        string(c.Kind),
			Category:    string(c.Category),
			UOM:         string(c.UOM),
			Tier:        c.Tier,
			Zone:        c.Zone,
			Quantity:    c.Quantity,
			UnitPrice:   c.UnitPrice,
			Description: c.Description,
			RateID:      c.RateID,
		}
	})
}

func runMetadata(account *accountdomain.Account, dropped []charge.Dropped) map[string]any {
	meta := map[string]any{
		"account_code": account.Code,
	}
	if len(dropped) == 0 {
		return meta
	}
	meta["dropped_buckets"] = lo.Map(dropped, func(d charge.Dropped, _ int) map[string]any {
		entry := map[string]any{
			"kind":     string(d.Bucket.Kind),
			"category": string(d.Bucket.Category),
			"uom":      string(d.Bucket.UOM),
			"quantity": d.Bucket.Quantity.String(),
			"reason":   d.Reason,
		}
		if d.Bucket.Zone != "" {
			entry["zone"] = d.Bucket.Zone
		}
		return entry
	})
	return meta
}
