package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/ewceniza9009/cloudpallet-sub002/internal/account/domain"
	accountrepo "github.com/ewceniza9009/cloudpallet-sub002/internal/account/repository"
	accountservice "github.com/ewceniza9009/cloudpallet-sub002/internal/account/service"
	billingdomain "github.com/ewceniza9009/cloudpallet-sub002/internal/billing/domain"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/charge"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/clock"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/config"
	invoicedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/invoice/domain"
	invoicerepo "github.com/ewceniza9009/cloudpallet-sub002/internal/invoice/repository"
	invoiceservice "github.com/ewceniza9009/cloudpallet-sub002/internal/invoice/service"
	ratedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/rate/domain"
	raterepo "github.com/ewceniza9009/cloudpallet-sub002/internal/rate/repository"
	rateservice "github.com/ewceniza9009/cloudpallet-sub002/internal/rate/service"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/runlock"
	usagedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/usage/domain"
	usagerepo "github.com/ewceniza9009/cloudpallet-sub002/internal/usage/repository"
	usageservice "github.com/ewceniza9009/cloudpallet-sub002/internal/usage/service"
	"github.com/glebarez/sqlite"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	june1 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	june2 = time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	july1 = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
)

type harness struct {
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	locker   *runlock.MemoryLocker
	accounts accountdomain.Service
	rates    ratedomain.Service
	invoices invoicedomain.Service
	svc      *Service
}

func setupHarness(t *testing.T) *harness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&accountdomain.Account{},
		&ratedomain.Rate{},
		&usagedomain.StorageDailyOccupancy{},
		&usagedomain.ReceivingLine{},
		&usagedomain.PickConfirmation{},
		&usagedomain.WithdrawalLine{},
		&usagedomain.VASTransaction{},
		&usagedomain.VASTransactionLine{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceLine{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(july1.Add(2 * time.Hour))
	log := zap.NewNop()

	accounts := accountservice.New(accountservice.Params{
		DB: db, Log: log, GenID: node, Repo: accountrepo.Provide(), Clock: clk,
	})
	rates := rateservice.NewService(rateservice.ServiceParam{
		DB: db, Log: log, GenID: node, Repo: raterepo.Provide(), Clock: clk,
	})
	invoices := invoiceservice.NewService(invoiceservice.ServiceParam{
		DB: db, Log: log, GenID: node, Repo: invoicerepo.Provide(), Clock: clk,
	})
	aggregator := usageservice.NewService(usageservice.ServiceParam{
		Reader: usagerepo.NewReader(usagerepo.ReaderParam{DB: db}),
		Log:    log,
	})
	resolver := charge.NewResolver(charge.ResolverParam{RateSvc: rates, Log: log})
	locker := runlock.NewMemoryLocker(clk.Now)

	svc := NewService(ServiceParam{
		Log:        log,
		AccountSvc: accounts,
		Aggregator: aggregator,
		Resolver:   resolver,
		InvoiceSvc: invoices,
		Locker:     locker,
		Tiers:      config.NewStaticTierHolder(config.DefaultTierTable()),
		Clock:      clk,
	}).(*Service)

	return &harness{
		db: db, node: node, clock: clk, locker: locker,
		accounts: accounts, rates: rates, invoices: invoices, svc: svc,
	}
}

func (h *harness) account(t *testing.T, code string) *accountdomain.Account {
	t.Helper()
	acct, err := h.accounts.Create(context.Background(), accountdomain.CreateRequest{Code: code, Name: code})
	require.NoError(t, err)
	return acct
}

func (h *harness) rate(t *testing.T, accountID snowflake.ID, category ratedomain.Category, uom ratedomain.UOM, tier *string, price string) {
	t.Helper()
	_, err := h.rates.Create(context.Background(), ratedomain.CreateRequest{
		AccountID:     lo.ToPtr(accountID),
		Category:      category,
		UOM:           uom,
		Tier:          tier,
		UnitPrice:     decimal.RequireFromString(price),
		EffectiveFrom: june1.AddDate(-1, 0, 0),
	})
	require.NoError(t, err)
}

func (h *harness) fumigationRate(t *testing.T, accountID snowflake.ID, price int64, from time.Time, to *time.Time) {
	t.Helper()
	_, err := h.rates.Create(context.Background(), ratedomain.CreateRequest{
		AccountID:     lo.ToPtr(accountID),
		Category:      ratedomain.CategoryFumigation,
		UOM:           ratedomain.UOMCycle,
		UnitPrice:     decimal.NewFromInt(price),
		EffectiveFrom: from,
		EffectiveTo:   to,
	})
	require.NoError(t, err)
}

func (h *harness) occupancy(t *testing.T, accountID snowflake.ID, zone string, day time.Time, pallets int64, kg int64) {
	t.Helper()
	require.NoError(t, h.db.Create(&usagedomain.StorageDailyOccupancy{
		ID:          h.node.Generate(),
		AccountID:   accountID,
		Zone:        zone,
		Day:         day,
		PalletCount: pallets,
		WeightKg:    decimal.NewFromInt(kg),
	}).Error)
}

func (h *harness) fumigation(t *testing.T, accountID snowflake.ID, at time.Time, status usagedomain.VASStatus) {
	t.Helper()
	require.NoError(t, h.db.Create(&usagedomain.VASTransaction{
		ID:          h.node.Generate(),
		AccountID:   accountID,
		Type:        usagedomain.VASFumigation,
		Status:      status,
		PerformedAt: at,
	}).Error)
}

func runRequest(accountID snowflake.ID) billingdomain.RunRequest {
	return billingdomain.RunRequest{AccountID: accountID, PeriodStart: june1, PeriodEnd: july1}
}

func TestRun_KgStorageSupersedesPallet(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	acct := h.account(t, "acme")

	frozen := lo.ToPtr("FrozenStorage")
	h.rate(t, acct.ID, ratedomain.CategoryStorage, ratedomain.UOMKg, frozen, "0.05")
	h.rate(t, acct.ID, ratedomain.CategoryStorage, ratedomain.UOMPallet, frozen, "1.25")
	h.occupancy(t, acct.ID, "frozen", june1, 4, 6000)
	h.occupancy(t, acct.ID, "frozen", june2, 4, 4000)

	inv, err := h.svc.Run(ctx, runRequest(acct.ID))
	require.NoError(t, err)

	require.Len(t, inv.Lines, 1)
	line := inv.Lines[0]
	assert.Equal(t, "storage_weight", line.Kind)
	assert.Equal(t, "Kg", line.UOM)
	assert.Equal(t, "frozen", line.Zone)
	assert.Equal(t, "500.00", line.Amount.StringFixed(2))
	assert.Equal(t, "500.00", inv.TotalAmount.StringFixed(2))
	assert.Equal(t, invoicedomain.InvoiceStatusFinalized, inv.Status)

	stored, err := h.invoices.FindForPeriod(ctx, acct.ID, june1, july1)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, inv.ID, stored.ID)
	require.Len(t, stored.Lines, 1)
}

func TestRun_FumigationCountsCompletedCycles(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	acct := h.account(t, "fumi")

	h.rate(t, acct.ID, ratedomain.CategoryFumigation, ratedomain.UOMCycle, nil, "150")
	for i := 0; i < 3; i++ {
		h.fumigation(t, acct.ID, june1.AddDate(0, 0, i+1), usagedomain.VASStatusCompleted)
	}
	h.fumigation(t, acct.ID, june1.AddDate(0, 0, 10), usagedomain.VASStatusCancelled)
	h.fumigation(t, acct.ID, july1, usagedomain.VASStatusCompleted)

	inv, err := h.svc.Run(ctx, runRequest(acct.ID))
	require.NoError(t, err)

	require.Len(t, inv.Lines, 1)
	assert.Equal(t, "fumigation", inv.Lines[0].Kind)
	assert.Equal(t, "3", inv.Lines[0].Quantity.String())
	assert.Equal(t, "450.00", inv.TotalAmount.StringFixed(2))
	assert.Equal(t, "Fumigation for 3 cycles.", inv.Lines[0].Description)
}

func TestRun_NoActivityFinalizesEmptyInvoice(t *testing.T) {
	h := setupHarness(t)
	acct := h.account(t, "idle")

	inv, err := h.svc.Run(context.Background(), runRequest(acct.ID))
	require.NoError(t, err)
	assert.Empty(t, inv.Lines)
	assert.True(t, inv.TotalAmount.IsZero())
	assert.Equal(t, invoicedomain.InvoiceStatusFinalized, inv.Status)
}

func TestRun_MissingRateRecordedInMetadata(t *testing.T) {
	h := setupHarness(t)
	acct := h.account(t, "norate")
	h.occupancy(t, acct.ID, "chilled", june1, 2, 0)

	inv, err := h.svc.Run(context.Background(), runRequest(acct.ID))
	require.NoError(t, err)
	assert.Empty(t, inv.Lines)

	dropped, ok := inv.Metadata["dropped_buckets"].([]map[string]any)
	require.True(t, ok)
	reasons := lo.Map(dropped, func(d map[string]any, _ int) any { return d["reason"] })
	assert.ElementsMatch(t, []any{charge.ReasonZeroQuantity, charge.ReasonRateNotFound}, reasons)
}

func TestRun_AsOfPinsRateVersion(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	acct := h.account(t, "pinned")

	h.fumigationRate(t, acct.ID, 100, june1, lo.ToPtr(july1))
	h.fumigationRate(t, acct.ID, 200, july1, nil)
	h.fumigation(t, acct.ID, june2, usagedomain.VASStatusCompleted)

	req := runRequest(acct.ID)
	req.AsOf = lo.ToPtr(june2)
	inv, err := h.svc.Run(ctx, req)
	require.NoError(t, err)
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, "100.00", inv.TotalAmount.StringFixed(2))
	assert.Equal(t, june2, inv.AsOf)

	other := h.account(t, "clocked")
	h.fumigationRate(t, other.ID, 100, june1, lo.ToPtr(july1))
	h.fumigationRate(t, other.ID, 200, july1, nil)
	h.fumigation(t, other.ID, june2, usagedomain.VASStatusCompleted)
	inv, err = h.svc.Run(ctx, runRequest(other.ID))
	require.NoError(t, err)
	assert.Equal(t, "200.00", inv.TotalAmount.StringFixed(2))
	assert.Equal(t, h.clock.Now(), inv.AsOf)
}

func TestRun_Validation(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()

	_, err := h.svc.Run(ctx, billingdomain.RunRequest{PeriodStart: june1, PeriodEnd: july1})
	assert.ErrorIs(t, err, billingdomain.ErrInvalidAccount)

	acct := h.account(t, "valid")
	_, err = h.svc.Run(ctx, billingdomain.RunRequest{AccountID: acct.ID, PeriodStart: july1, PeriodEnd: june1})
	assert.ErrorIs(t, err, billingdomain.ErrInvalidPeriod)

	_, err = h.svc.Run(ctx, runRequest(h.node.Generate()))
	assert.ErrorIs(t, err, billingdomain.ErrAccountNotFound)

	require.NoError(t, h.accounts.SetStatus(ctx, acct.ID, accountdomain.AccountStatusSuspended))
	_, err = h.svc.Run(ctx, runRequest(acct.ID))
	assert.ErrorIs(t, err, billingdomain.ErrAccountNotFound)
}

func TestRun_SecondRunRejected(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	acct := h.account(t, "twice")

	_, err := h.svc.Run(ctx, runRequest(acct.ID))
	require.NoError(t, err)

	_, err = h.svc.Run(ctx, runRequest(acct.ID))
	assert.ErrorIs(t, err, billingdomain.ErrInvoiceExists)
}

func TestRun_LockHeld(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	acct := h.account(t, "locked")

	key := billingdomain.LockKey(acct.ID, june1, july1)
	_, ok, err := h.locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = h.svc.Run(ctx, runRequest(acct.ID))
	assert.ErrorIs(t, err, billingdomain.ErrRunInProgress)

	stored, err := h.invoices.FindForPeriod(ctx, acct.ID, june1, july1)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestRun_ReleasesLock(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	acct := h.account(t, "release")

	_, err := h.svc.Run(ctx, runRequest(acct.ID))
	require.NoError(t, err)

	_, ok, err := h.locker.TryLock(ctx, billingdomain.LockKey(acct.ID, june1, july1), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

type cancellingAggregator struct {
	inner  usagedomain.Aggregator
	cancel context.CancelFunc
}

func (a cancellingAggregator) Aggregate(ctx context.Context, req usagedomain.AggregateRequest) ([]usagedomain.Bucket, error) {
	buckets, err := a.inner.Aggregate(ctx, req)
	a.cancel()
	return buckets, err
}

func TestRun_CancelledBeforePersist(t *testing.T) {
	h := setupHarness(t)
	acct := h.account(t, "cancel")
	h.rate(t, acct.ID, ratedomain.CategoryFumigation, ratedomain.UOMCycle, nil, "150")
	h.fumigation(t, acct.ID, june2, usagedomain.VASStatusCompleted)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.svc.aggregator = cancellingAggregator{inner: h.svc.aggregator, cancel: cancel}

	_, err := h.svc.Run(ctx, runRequest(acct.ID))
	assert.ErrorIs(t, err, context.Canceled)

	stored, err := h.invoices.FindForPeriod(context.Background(), acct.ID, june1, july1)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestRunPeriod_CollectsOutcomes(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()

	fresh := h.account(t, "fresh")
	done := h.account(t, "done")
	suspended := h.account(t, "suspended")
	require.NoError(t, h.accounts.SetStatus(ctx, suspended.ID, accountdomain.AccountStatusSuspended))

	_, err := h.svc.Run(ctx, runRequest(done.ID))
	require.NoError(t, err)

	res, err := h.svc.RunPeriod(ctx, june1, july1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []snowflake.ID{fresh.ID}, res.Invoiced)
	assert.ElementsMatch(t, []snowflake.ID{done.ID}, res.Skipped)
	assert.Empty(t, res.Failed)
	assert.NoError(t, res.Err())
}

func TestRunPeriod_InvalidPeriod(t *testing.T) {
	h := setupHarness(t)
	_, err := h.svc.RunPeriod(context.Background(), july1, june1)
	assert.ErrorIs(t, err, billingdomain.ErrInvalidPeriod)
}
