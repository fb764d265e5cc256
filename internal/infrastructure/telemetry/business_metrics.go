package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the document lifecycle.
// It tracks document creation, conversions, payments, approvals and the
// derived tenant telemetry.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	documentCreatedTotal *Counter
	conversionTotal      *Counter
	paymentTotal         *Counter
	paymentAmountTotal   *Counter
	approvalTotal        *Counter

	// Gauge metrics (point-in-time values)
	totalEarnings         *FloatGauge
	totalExpenses         *FloatGauge
	profitMargin          *FloatGauge
	pendingRevenue        *FloatGauge
	corporateTaxProgress  *FloatGauge
	estimatedTaxLiability *FloatGauge
	overdueCount          *Gauge
	invoiceCount          *Gauge
	proposalCount         *Gauge
	clientCount           *Gauge
	pendingApprovalCount  *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	telemetrySource TelemetrySource
}

// TenantTelemetry is the set of derived values exported per tenant
type TenantTelemetry struct {
	TotalEarnings         float64
	TotalExpenses         float64
	ProfitMargin          float64
	PendingRevenue        float64
	CorporateTaxProgress  float64
	EstimatedTaxLiability float64
	OverdueCount          int64
	InvoiceCount          int64
	ProposalCount         int64
	ClientCount           int64
	PendingApprovalCount  int64
}

// TelemetrySource computes a tenant's telemetry for periodic collection.
// This interface keeps the telemetry layer independent of the analytics code.
type TelemetrySource interface {
	TenantTelemetry(ctx context.Context, tenantID string) (TenantTelemetry, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	TelemetrySource TelemetrySource
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		telemetrySource: cfg.TelemetrySource,
	}

	counters := []struct {
		target           **Counter
		name, desc, unit string
	}{
		{&bm.documentCreatedTotal, "bizops_document_created_total", "Total number of commercial documents created", "{documents}"},
		{&bm.conversionTotal, "bizops_conversion_total", "Total number of document conversions by outcome", "{conversions}"},
		{&bm.paymentTotal, "bizops_payment_total", "Total number of payment recordings", "{payments}"},
		{&bm.paymentAmountTotal, "bizops_payment_amount_total", "Total applied payment amount in fils", "{fils}"},
		{&bm.approvalTotal, "bizops_approval_total", "Total number of approval decisions", "{decisions}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	floatGauges := []struct {
		target           **FloatGauge
		name, desc, unit string
	}{
		{&bm.totalEarnings, "bizops_total_earnings", "Paid invoice value plus receipts", "{AED}"},
		{&bm.totalExpenses, "bizops_total_expenses", "Sum of expense vouchers", "{AED}"},
		{&bm.profitMargin, "bizops_profit_margin", "Profit margin percentage", "%"},
		{&bm.pendingRevenue, "bizops_pending_revenue", "Value of unpaid invoices", "{AED}"},
		{&bm.corporateTaxProgress, "bizops_corporate_tax_progress", "Progress towards the corporate tax threshold", "%"},
		{&bm.estimatedTaxLiability, "bizops_estimated_tax_liability", "Estimated corporate tax liability", "{AED}"},
	}
	for _, g := range floatGauges {
		gauge, err := NewFloatGauge(cfg.Meter, g.name, g.desc, g.unit)
		if err != nil {
			return nil, err
		}
		*g.target = gauge
	}

	intGauges := []struct {
		target           **Gauge
		name, desc, unit string
	}{
		{&bm.overdueCount, "bizops_overdue_invoice_count", "Number of unpaid invoices past their due date", "{invoices}"},
		{&bm.invoiceCount, "bizops_invoice_count", "Number of invoices", "{invoices}"},
		{&bm.proposalCount, "bizops_proposal_count", "Number of proposals", "{proposals}"},
		{&bm.clientCount, "bizops_client_count", "Number of clients", "{clients}"},
		{&bm.pendingApprovalCount, "bizops_pending_approval_count", "Number of documents awaiting approval", "{documents}"},
	}
	for _, g := range intGauges {
		gauge, err := NewGauge(cfg.Meter, g.name, g.desc, g.unit)
		if err != nil {
			return nil, err
		}
		*g.target = gauge
	}

	return bm, nil
}

// =============================================================================
// Lifecycle Metrics
// =============================================================================

// RecordDocumentCreated records a direct Invoice or LPO creation.
func (bm *BusinessMetrics) RecordDocumentCreated(ctx context.Context, tenantID, documentType, status string) {
	bm.documentCreatedTotal.Inc(ctx,
		AttrTenantID.String(tenantID),
		AttrDocumentType.String(documentType),
		AttrDocumentStatus.String(status),
	)
}

// ConversionOutcome labels how a conversion request ended.
type ConversionOutcome string

const (
	ConversionCreated       ConversionOutcome = "created"
	ConversionAlreadyExists ConversionOutcome = "already_exists"
	ConversionConflict      ConversionOutcome = "conflict"
	ConversionFailed        ConversionOutcome = "failed"
)

// RecordConversion records a proposal->LPO or document->invoice conversion.
func (bm *BusinessMetrics) RecordConversion(ctx context.Context, tenantID, kind string, outcome ConversionOutcome) {
	bm.conversionTotal.Inc(ctx,
		AttrTenantID.String(tenantID),
		AttrConversionKind.String(kind),
		AttrOutcome.String(string(outcome)),
	)
}

// PaymentStatus represents the outcome of a payment recording for metrics labeling.
type PaymentStatus string

const (
	PaymentStatusApplied PaymentStatus = "applied"
	PaymentStatusPending PaymentStatus = "pending_approval"
)

// RecordPayment records a payment recording. Applied payments also add their
// amount in fils to the amount counter.
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, tenantID string, status PaymentStatus, amount decimal.Decimal) {
	bm.paymentTotal.Inc(ctx,
		AttrTenantID.String(tenantID),
		AttrPaymentStatus.String(string(status)),
	)
	if status == PaymentStatusApplied {
		fils := amount.Mul(decimal.NewFromInt(100)).IntPart()
		bm.paymentAmountTotal.Add(ctx, fils, AttrTenantID.String(tenantID))
	}
}

// RecordApproval records an Owner clearance decision ("approved" or "rejected").
func (bm *BusinessMetrics) RecordApproval(ctx context.Context, tenantID, decision string) {
	bm.approvalTotal.Inc(ctx,
		AttrTenantID.String(tenantID),
		AttrOutcome.String(decision),
	)
}

// =============================================================================
// Telemetry Gauges
// =============================================================================

// RecordTelemetry exports one tenant's derived values as gauges.
func (bm *BusinessMetrics) RecordTelemetry(ctx context.Context, tenantID string, t TenantTelemetry) {
	attr := AttrTenantID.String(tenantID)

	bm.totalEarnings.Record(ctx, t.TotalEarnings, attr)
	bm.totalExpenses.Record(ctx, t.TotalExpenses, attr)
	bm.profitMargin.Record(ctx, t.ProfitMargin, attr)
	bm.pendingRevenue.Record(ctx, t.PendingRevenue, attr)
	bm.corporateTaxProgress.Record(ctx, t.CorporateTaxProgress, attr)
	bm.estimatedTaxLiability.Record(ctx, t.EstimatedTaxLiability, attr)
	bm.overdueCount.Record(ctx, t.OverdueCount, attr)
	bm.invoiceCount.Record(ctx, t.InvoiceCount, attr)
	bm.proposalCount.Record(ctx, t.ProposalCount, attr)
	bm.clientCount.Record(ctx, t.ClientCount, attr)
	bm.pendingApprovalCount.Record(ctx, t.PendingApprovalCount, attr)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	ActiveTenantIDs(ctx context.Context) ([]string, error)
}

// StartPeriodicCollection starts periodic collection of telemetry gauges.
// It recomputes every active tenant every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collectTelemetry(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectTelemetry(ctx, tenantProvider)
		}
	}
}

// collectTelemetry records gauges for all active tenants.
func (bm *BusinessMetrics) collectTelemetry(ctx context.Context, tenantProvider TenantProvider) {
	if bm.telemetrySource == nil {
		bm.logger.Debug("No telemetry source configured, skipping collection")
		return
	}

	tenantIDs, err := tenantProvider.ActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		t, err := bm.telemetrySource.TenantTelemetry(ctx, tenantID)
		if err != nil {
			bm.logger.Warn("Failed to compute telemetry for tenant",
				zap.String("tenant_id", tenantID),
				zap.Error(err),
			)
			continue
		}
		bm.RecordTelemetry(ctx, tenantID, t)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Business metrics attribute keys not already defined in metrics.go
var (
	AttrDocumentType   = attribute.Key("document_type")
	AttrDocumentStatus = attribute.Key("document_status")
	AttrConversionKind = attribute.Key("conversion_kind")
	AttrOutcome        = attribute.Key("outcome")
)
