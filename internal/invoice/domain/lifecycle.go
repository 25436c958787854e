package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const amountScale = 2

// NewInvoice returns an empty DRAFT invoice for [start, end).
func NewInvoice(id, accountID snowflake.ID, start, end, asOf time.Time) (*Invoice, error) {
	if accountID == 0 {
		return nil, ErrInvalidAccount
	}
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return nil, ErrInvalidPeriod
	}
	return &Invoice{
		ID:          id,
		AccountID:   accountID,
		PeriodStart: start,
		PeriodEnd:   end,
		AsOf:        asOf.UTC(),
		Status:      InvoiceStatusDraft,
		TotalAmount: decimal.Zero,
		Lines:       []InvoiceLine{},
	}, nil
}

func (i *Invoice) IsDraft() bool { return i.Status == InvoiceStatusDraft }

// AddLine appends a line in presentation order. The amount is derived from
// quantity and unit price.
func (i *Invoice) AddLine(line InvoiceLine) error {
	if !i.IsDraft() {
		return ErrInvoiceNotDraft
	}
	if line.Quantity.IsNegative() || line.UnitPrice.IsNegative() {
		return ErrInvalidLine
	}
	line.InvoiceID = i.ID
	line.Position = len(i.Lines) + 1
	line.Quantity = line.Quantity.Round(6)
	line.UnitPrice = line.UnitPrice.Round(6)
	line.Amount = line.Quantity.Mul(line.UnitPrice).Round(amountScale)
	i.Lines = append(i.Lines, line)
	return nil
}

// Finalize freezes the invoice and its total. It may succeed only once.
func (i *Invoice) Finalize(now time.Time) error {
	if !i.IsDraft() {
		return ErrInvoiceAlreadyFinalized
	}
	i.TotalAmount = i.SumLines()
	i.Status = InvoiceStatusFinalized
	finalizedAt := now.UTC()
	i.FinalizedAt = &finalizedAt
	return nil
}

func (i *Invoice) SumLines() decimal.Decimal {
	total := decimal.Zero
	for _, line := range i.Lines {
		total = total.Add(line.Amount)
	}
	return total.Round(amountScale)
}
