package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/clock"
	invoicedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/invoice/domain"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/invoice/repository"
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
	july1 = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
)

func setupInvoiceService(t *testing.T) (invoicedomain.Service, *snowflake.Node) {
	t.Helper()
	svc, node, _ := setupInvoiceServiceDB(t)
	return svc, node
}

func setupInvoiceServiceDB(t *testing.T) (invoicedomain.Service, *snowflake.Node, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&invoicedomain.Invoice{}, &invoicedomain.InvoiceLine{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(july1),
	})
	return svc, node, db
}

func buildRequest(accountID snowflake.ID, rateID snowflake.ID) invoicedomain.BuildRequest {
	return invoicedomain.BuildRequest{
		AccountID:   accountID,
		PeriodStart: june1,
		PeriodEnd:   july1,
		AsOf:        july1,
		Lines: []invoicedomain.LineInput{
			{
				Kind:        "storage_weight",
				Category:    "Storage",
				UOM:         "Kg",
				Tier:        lo.ToPtr("FrozenStorage"),
				Zone:        "FROZEN-A",
				Quantity:    decimal.NewFromInt(10000),
				UnitPrice:   decimal.RequireFromString("0.05"),
				Description: "FrozenStorage Storage for 10000 kg-days.",
				RateID:      rateID,
			},
			{
				Kind:        "fumigation",
				Category:    "Fumigation",
				UOM:         "Cycle",
				Quantity:    decimal.NewFromInt(3),
				UnitPrice:   decimal.NewFromInt(150),
				Description: "Fumigation for 3 cycles.",
			},
		},
		Metadata: map[string]any{"source": "test"},
	}
}

func TestBuild_AddsLinesInOrder(t *testing.T) {
	svc, node := setupInvoiceService(t)
	account := node.Generate()
	rateID := node.Generate()

	invoice, err := svc.Build(context.Background(), buildRequest(account, rateID))
	require.NoError(t, err)

	assert.Equal(t, invoicedomain.InvoiceStatusDraft, invoice.Status)
	require.Len(t, invoice.Lines, 2)
	assert.Equal(t, "storage_weight", invoice.Lines[0].Kind)
	assert.Equal(t, "500.00", invoice.Lines[0].Amount.StringFixed(2))
	require.NotNil(t, invoice.Lines[0].RateID)
	assert.Equal(t, rateID, *invoice.Lines[0].RateID)
	assert.Nil(t, invoice.Lines[1].RateID)
	assert.NotEqual(t, invoice.Lines[0].ID, invoice.Lines[1].ID)
}

func TestBuild_InvalidPeriod(t *testing.T) {
	svc, node := setupInvoiceService(t)
	req := buildRequest(node.Generate(), 0)
	req.PeriodEnd = june1

	_, err := svc.Build(context.Background(), req)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidPeriod)
}

func TestPersist_RequiresFinalized(t *testing.T) {
	svc, node := setupInvoiceService(t)
	invoice, err := svc.Build(context.Background(), buildRequest(node.Generate(), 0))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Persist(context.Background(), invoice), invoicedomain.ErrInvoiceNotFinalized)
	assert.ErrorIs(t, svc.Persist(context.Background(), nil), invoicedomain.ErrInvoiceNotFinalized)
}

func TestPersist_RoundTrip(t *testing.T) {
	svc, node := setupInvoiceService(t)
	ctx := context.Background()
	account := node.Generate()

	invoice, err := svc.Build(ctx, buildRequest(account, node.Generate()))
	require.NoError(t, err)
	require.NoError(t, invoice.Finalize(july1))
	require.NoError(t, svc.Persist(ctx, invoice))

	got, err := svc.GetByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusFinalized, got.Status)
	assert.Equal(t, "950.00", got.TotalAmount.StringFixed(2))
	require.Len(t, got.Lines, 2)
	assert.Equal(t, 1, got.Lines[0].Position)
	assert.Equal(t, "fumigation", got.Lines[1].Kind)

	found, err := svc.FindForPeriod(ctx, account, june1, july1)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, invoice.ID, found.ID)

	missing, err := svc.FindForPeriod(ctx, account, july1, july1.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := svc.List(ctx, account)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPersist_DuplicatePeriod(t *testing.T) {
	svc, node := setupInvoiceService(t)
	ctx := context.Background()
	account := node.Generate()

	first, err := svc.Build(ctx, buildRequest(account, 0))
	require.NoError(t, err)
	require.NoError(t, first.Finalize(july1))
	require.NoError(t, svc.Persist(ctx, first))

	second, err := svc.Build(ctx, buildRequest(account, 0))
	require.NoError(t, err)
	require.NoError(t, second.Finalize(july1))

	err = svc.Persist(ctx, second)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceExists)

	_, err = svc.GetByID(ctx, second.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
}

func TestGetByID_NotFound(t *testing.T) {
	svc, node := setupInvoiceService(t)
	_, err := svc.GetByID(context.Background(), node.Generate())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
}

func TestPersist_LineFailureRollsBackHeader(t *testing.T) {
	svc, node, db := setupInvoiceServiceDB(t)
	ctx := context.Background()
	account := node.Generate()

	invoice, err := svc.Build(ctx, buildRequest(account, 0))
	require.NoError(t, err)
	invoice.Lines[1].ID = invoice.Lines[0].ID
	require.NoError(t, invoice.Finalize(july1))

	err = svc.Persist(ctx, invoice)
	require.Error(t, err)
	assert.NotErrorIs(t, err, invoicedomain.ErrInvoiceExists)

	found, err := svc.FindForPeriod(ctx, account, june1, july1)
	require.NoError(t, err)
	assert.Nil(t, found)

	var headers, lines int64
	require.NoError(t, db.Model(&invoicedomain.Invoice{}).Count(&headers).Error)
	require.NoError(t, db.Model(&invoicedomain.InvoiceLine{}).Count(&lines).Error)
	assert.Zero(t, headers)
	assert.Zero(t, lines)
}

func TestGetByID_ZeroDoesNotMatchPersistedInvoice(t *testing.T) {
	svc, node, db := setupInvoiceServiceDB(t)
	ctx := context.Background()
	account := node.Generate()

	invoice, err := svc.Build(ctx, buildRequest(account, 0))
	require.NoError(t, err)
	require.NoError(t, invoice.Finalize(july1))
	require.NoError(t, svc.Persist(ctx, invoice))

	_, err = svc.GetByID(ctx, 0)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	repo := repository.Provide()
	got, err := repo.FindByID(ctx, db, 0)
	require.NoError(t, err)
	assert.Nil(t, got)

	none, err := repo.ListByAccount(ctx, db, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
