// Package analytics derives a tenant's business telemetry from its synced
// snapshots.
package analytics

import (
	"time"

	"github.com/bizops/backend/internal/domain/document"
	"github.com/bizops/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

var (
	// CorporateTaxThreshold is the earnings level above which corporate tax applies
	CorporateTaxThreshold = decimal.NewFromInt(375000)
	// CorporateTaxRate is the marginal rate applied above the threshold
	CorporateTaxRate = decimal.RequireFromString("0.09")

	hundred = decimal.NewFromInt(100)
)

// Telemetry is the derived, read-only view of a tenant's finances
type Telemetry struct {
	TenantID              string          `json:"tenantId"`
	TotalEarnings         decimal.Decimal `json:"totalEarnings"`
	TotalExpenses         decimal.Decimal `json:"totalExpenses"`
	ProfitMargin          decimal.Decimal `json:"profitMargin"`
	PendingRevenue        decimal.Decimal `json:"pendingRevenue"`
	OverdueCount          int             `json:"overdueCount"`
	CorporateTaxProgress  decimal.Decimal `json:"corporateTaxProgress"`
	EstimatedTaxLiability decimal.Decimal `json:"estimatedTaxLiability"`
	InvoiceCount          int             `json:"invoiceCount"`
	ProposalCount         int             `json:"proposalCount"`
	ClientCount           int             `json:"clientCount"`
	PendingApprovalCount  int             `json:"pendingApprovalCount"`
	ComputedAt            time.Time       `json:"computedAt"`
}

// Inputs are the decoded collections telemetry is computed from. Documents
// may hold LPOs; only invoices count towards revenue.
type Inputs struct {
	Documents []document.CommercialDocument
	Proposals []document.Proposal
	Vouchers  []document.Voucher
	Clients   int
}

// Compute derives telemetry. It is pure: the same inputs and clock give the
// same result.
func Compute(tenantID string, in Inputs, now time.Time) *Telemetry {
	t := &Telemetry{
		TenantID:       tenantID,
		TotalEarnings:  decimal.Zero,
		TotalExpenses:  decimal.Zero,
		PendingRevenue: decimal.Zero,
		ProposalCount:  len(in.Proposals),
		ClientCount:    in.Clients,
		ComputedAt:     now,
	}

	for i := range in.Documents {
		d := &in.Documents[i]
		if d.Status == document.StatusPendingApproval {
			t.PendingApprovalCount++
		}
		if !d.IsInvoice() {
			continue
		}
		t.InvoiceCount++
		if d.Status == document.StatusPaid {
			t.TotalEarnings = t.TotalEarnings.Add(d.AmountAED)
			continue
		}
		t.PendingRevenue = t.PendingRevenue.Add(d.AmountAED)
		if d.IsOverdue(now) {
			t.OverdueCount++
		}
	}

	for _, p := range in.Proposals {
		if p.Status == document.ProposalPendingApproval {
			t.PendingApprovalCount++
		}
	}

	for _, v := range in.Vouchers {
		switch v.Type {
		case document.VoucherReceipt:
			t.TotalEarnings = t.TotalEarnings.Add(v.Amount)
		case document.VoucherExpense:
			t.TotalExpenses = t.TotalExpenses.Add(v.Amount)
		}
	}

	t.ProfitMargin = ProfitMargin(t.TotalEarnings, t.TotalExpenses)
	t.CorporateTaxProgress = TaxProgress(t.TotalEarnings)
	t.EstimatedTaxLiability = TaxLiability(t.TotalEarnings)
	return t
}

// ProfitMargin returns (earnings - expenses) / earnings x 100, and 0 when
// there are no earnings
func ProfitMargin(earnings, expenses decimal.Decimal) decimal.Decimal {
	if earnings.IsZero() {
		return decimal.Zero
	}
	return earnings.Sub(expenses).Div(earnings).Mul(hundred)
}

// TaxProgress returns how far earnings are towards the threshold, capped at 100
func TaxProgress(earnings decimal.Decimal) decimal.Decimal {
	return decimal.Min(hundred, earnings.Div(CorporateTaxThreshold).Mul(hundred))
}

// TaxLiability returns the tax owed on earnings above the threshold
func TaxLiability(earnings decimal.Decimal) decimal.Decimal {
	if !earnings.GreaterThan(CorporateTaxThreshold) {
		return decimal.Zero
	}
	return earnings.Sub(CorporateTaxThreshold).Mul(CorporateTaxRate)
}

// Metrics converts the telemetry into the gauge set exported over OpenTelemetry
func (t *Telemetry) Metrics() telemetry.TenantTelemetry {
	return telemetry.TenantTelemetry{
		TotalEarnings:         t.TotalEarnings.InexactFloat64(),
		TotalExpenses:         t.TotalExpenses.InexactFloat64(),
		ProfitMargin:          t.ProfitMargin.InexactFloat64(),
		PendingRevenue:        t.PendingRevenue.InexactFloat64(),
		CorporateTaxProgress:  t.CorporateTaxProgress.InexactFloat64(),
		EstimatedTaxLiability: t.EstimatedTaxLiability.InexactFloat64(),
		OverdueCount:          int64(t.OverdueCount),
		InvoiceCount:          int64(t.InvoiceCount),
		ProposalCount:         int64(t.ProposalCount),
		ClientCount:           int64(t.ClientCount),
		PendingApprovalCount:  int64(t.PendingApprovalCount),
	}
}
