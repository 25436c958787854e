package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/rate/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRateService struct {
	mock.Mock
}

func (m *mockRateService) Resolve(ctx context.Context, req ratedomain.ResolveRequest) (*ratedomain.Rate, error) {
	args := m.Called(ctx, req)
	rate, _ := args.Get(0).(*ratedomain.Rate)
	return rate, args.Error(1)
}

func (m *mockRateService) Create(context.Context, ratedomain.CreateRequest) (*ratedomain.Rate, error) {
	panic("not used")
}

func (m *mockRateService) Supersede(context.Context, ratedomain.SupersedeRequest) (*ratedomain.Rate, error) {
	panic("not used")
}

func (m *mockRateService) Deactivate(context.Context, snowflake.ID) error { panic("not used") }

func (m *mockRateService) Get(context.Context, snowflake.ID) (*ratedomain.Rate, error) {
	panic("not used")
}

func (m *mockRateService) List(context.Context, ratedomain.ListRequest) ([]ratedomain.Rate, error) {
	panic("not used")
}

func TestSnapshot_MemoizesHitsAndMisses(t *testing.T) {
	asOf := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	svc := new(mockRateService)
	hit := &ratedomain.Rate{ID: 7, UnitPrice: decimal.NewFromInt(150)}

	svc.On("Resolve", mock.Anything, mock.MatchedBy(func(req ratedomain.ResolveRequest) bool {
		return req.Category == ratedomain.CategoryFumigation && req.At.Equal(asOf) && *req.AccountID == 42
	})).Return(hit, nil).Once()
	svc.On("Resolve", mock.Anything, mock.MatchedBy(func(req ratedomain.ResolveRequest) bool {
		return req.Category == ratedomain.CategoryRepack
	})).Return(nil, nil).Once()

	snap := NewSnapshot(svc, 42, asOf)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := snap.Lookup(ctx, ratedomain.CategoryFumigation, ratedomain.UOMCycle, nil)
		require.NoError(t, err)
		assert.Equal(t, hit, got)

		miss, err := snap.Lookup(ctx, ratedomain.CategoryRepack, ratedomain.UOMEach, nil)
		require.NoError(t, err)
		assert.Nil(t, miss)
	}

	svc.AssertExpectations(t)
}
