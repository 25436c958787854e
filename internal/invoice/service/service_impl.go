package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ewceniza9009/cloudpallet-sub002/internal/clock"
	invoicedomain "github.com/ewceniza9009/cloudpallet-sub002/internal/invoice/domain"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  invoicedomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  invoicedomain.Repository
	clock clock.Clock
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

// Build creates a DRAFT invoice and appends one line per input in order.
// The returned invoice is not finalized or persisted.
func (s *Service) Build(ctx context.Context, req invoicedomain.BuildRequest) (*invoicedomain.Invoice, error) {
	invoice, err := invoicedomain.NewInvoice(s.genID.Generate(), req.AccountID, req.PeriodStart, req.PeriodEnd, req.AsOf)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	if req.Metadata != nil {
		invoice.Metadata = datatypes.JSONMap(req.Metadata)
	}

	for _, in := range req.Lines {
		line := invoicedomain.InvoiceLine{
			ID:          s.genID.Generate(),
			Kind:        in.Kind,
			Category:    in.Category,
			UOM:         in.UOM,
			Tier:        in.Tier,
			Zone:        in.Zone,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Description: in.Description,
			CreatedAt:   now,
		}
		if in.RateID != 0 {
			line.RateID = lo.ToPtr(in.RateID)
		}
		if err := invoice.AddLine(line); err != nil {
			return nil, err
		}
	}

	return invoice, nil
}

// Persist stores a finalized invoice and its lines atomically.
func (s *Service) Persist(ctx context.Context, invoice *invoicedomain.Invoice) error {
	if invoice == nil || invoice.Status != invoicedomain.InvoiceStatusFinalized {
		return invoicedomain.ErrInvoiceNotFinalized
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Persist(ctx, tx, invoice)
	})
	if err != nil {
		return err
	}

	s.log.Info("invoice persisted",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("account_id", invoice.AccountID.String()),
		zap.Int("lines", len(invoice.Lines)),
		zap.String("total_amount", invoice.TotalAmount.StringFixed(2)),
	)
	return nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	if id == 0 {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	return invoice, nil
}

// FindForPeriod returns (nil, nil) when the period has not been invoiced.
func (s *Service) FindForPeriod(ctx context.Context, accountID snowflake.ID, start, end time.Time) (*invoicedomain.Invoice, error) {
	return s.repo.FindForPeriod(ctx, s.db, accountID, start, end)
}

func (s *Service) List(ctx context.Context, accountID snowflake.ID) ([]*invoicedomain.Invoice, error) {
	if accountID == 0 {
		return nil, invoicedomain.ErrInvalidAccount
	}
	return s.repo.ListByAccount(ctx, s.db, accountID)
}
