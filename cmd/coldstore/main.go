package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/account"
	accountdomain "github.com/ewceniza9009/cloudpallet-sub002/internal/account/domain"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/billing"
	billingdomain "github.com/ewceniza9009/cloudpallet-sub002/internal/billing/domain"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/charge"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/clock"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/config"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/invoice"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/migration"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/observability"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/rate"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/runlock"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/scheduler"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/usage"
	"github.com/ewceniza9009/cloudpallet-sub002/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// coldstore runs one invoice pass and exits. RUN_ACCOUNT_ID or RUN_ACCOUNT_CODE
// limits it to a single account; RUN_PERIOD_START/RUN_PERIOD_END default to the
// previous month.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		runlock.Module,

		account.Module,
		rate.Module,
		usage.Module,
		charge.Module,
		invoice.Module,
		billing.Module,

		fx.Invoke(RunOnce),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

// runPlan is what the environment asked for. With neither an account id nor
// a code every active account is invoiced.
type runPlan struct {
	req         billingdomain.RunRequest
	accountCode string
}

func (p runPlan) allAccounts() bool {
	return p.req.AccountID == 0 && p.accountCode == ""
}

func RunOnce(lc fx.Lifecycle, sd fx.Shutdowner, cfg config.Config, clk clock.Clock, accounts accountdomain.Service, svc billingdomain.Service, log *zap.Logger) {
	log = log.Named("coldstore.run")
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			plan, err := parseRun(cfg.Run, clk.Now())
			if err != nil {
				return err
			}
			go func() {
				code := 0
				if err := execute(ctx, accounts, svc, plan, log); err != nil {
					log.Error("invoice run failed", zap.Error(err))
					code = 1
				}
				_ = sd.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func execute(ctx context.Context, accounts accountdomain.Service, svc billingdomain.Service, plan runPlan, log *zap.Logger) error {
	req := plan.req
	if plan.allAccounts() {
		res, err := svc.RunPeriod(ctx, req.PeriodStart, req.PeriodEnd)
		if err != nil {
			return err
		}
		log.Info("period invoiced",
			zap.Int("invoiced", len(res.Invoiced)),
			zap.Int("skipped", len(res.Skipped)),
			zap.Int("failed", len(res.Failed)),
		)
		return res.Err()
	}

	if plan.accountCode != "" {
		account, err := accounts.GetByCode(ctx, plan.accountCode)
		if err != nil {
			return fmt.Errorf("account %q: %w", plan.accountCode, err)
		}
		req.AccountID = account.ID
	}

	inv, err := svc.Run(ctx, req)
	if errors.Is(err, billingdomain.ErrInvoiceExists) {
		log.Info("invoice already exists", zap.String("account_id", req.AccountID.String()))
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("total_amount", inv.TotalAmount.StringFixed(2)),
		zap.Int("lines", len(inv.Lines)),
	)
	return nil
}

func parseRun(run config.RunConfig, now time.Time) (runPlan, error) {
	var plan runPlan

	start, end := scheduler.PreviousMonth(now)
	if run.PeriodStart != "" || run.PeriodEnd != "" {
		var err error
		if start, err = parseTime(run.PeriodStart); err != nil {
			return plan, fmt.Errorf("RUN_PERIOD_START: %w", err)
		}
		if end, err = parseTime(run.PeriodEnd); err != nil {
			return plan, fmt.Errorf("RUN_PERIOD_END: %w", err)
		}
	}
	plan.req.PeriodStart, plan.req.PeriodEnd = start, end

	if run.AsOf != "" {
		asOf, err := parseTime(run.AsOf)
		if err != nil {
			return plan, fmt.Errorf("RUN_AS_OF: %w", err)
		}
		plan.req.AsOf = &asOf
	}

	if id := strings.TrimSpace(run.AccountID); id != "" {
		parsed, err := snowflake.ParseString(id)
		if err != nil {
			return plan, fmt.Errorf("RUN_ACCOUNT_ID: %w", err)
		}
		plan.req.AccountID = parsed
		return plan, nil
	}
	plan.accountCode = strings.TrimSpace(run.AccountCode)
	return plan, nil
}

func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
