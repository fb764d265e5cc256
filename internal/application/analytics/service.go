package analytics

import (
	"context"
	"time"

	"github.com/bizops/backend/internal/application/tenantsync"
	"github.com/bizops/backend/internal/domain/document"
	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// InputCollections are the collections telemetry depends on
var InputCollections = []shared.Collection{
	shared.CollectionInvoices,
	shared.CollectionProposals,
	shared.CollectionClients,
	shared.CollectionVouchers,
}

type options struct {
	logger      *zap.Logger
	now         func() time.Time
	metrics     *telemetry.BusinessMetrics
	onRecompute func(*Telemetry)
}

// Option configures a Service or an Aggregator
type Option func(*options)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides time.Now, which decides what counts as overdue
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithBusinessMetrics exports every recomputation as gauges
func WithBusinessMetrics(bm *telemetry.BusinessMetrics) Option {
	return func(o *options) {
		o.metrics = bm
	}
}

// WithRecomputeHook calls fn with every result an Aggregator computes. fn
// runs inside the layer's publication and must not block.
func WithRecomputeHook(fn func(*Telemetry)) Option {
	return func(o *options) {
		o.onRecompute = fn
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Service computes telemetry on demand from a Source
type Service struct {
	source tenantsync.Source
	options
}

// NewService creates a Service
func NewService(source tenantsync.Source, opts ...Option) *Service {
	return &Service{source: source, options: newOptions(opts)}
}

// Get reads the tenant's input collections and computes its telemetry
func (s *Service) Get(ctx context.Context, tenantID string) (*Telemetry, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "analytics", "get_telemetry",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
	)
	defer span.End()

	snaps := make(map[shared.Collection]*tenantsync.Snapshot, len(InputCollections))
	for _, c := range InputCollections {
		snap, err := s.source.Read(ctx, tenantID, c)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		snaps[c] = snap
	}

	t := Compute(tenantID, decodeInputs(snaps, s.logger), s.now())
	if s.metrics != nil {
		s.metrics.RecordTelemetry(ctx, tenantID, t.Metrics())
	}
	return t, nil
}

// TenantTelemetry implements telemetry.TelemetrySource for periodic collection
func (s *Service) TenantTelemetry(ctx context.Context, tenantID string) (telemetry.TenantTelemetry, error) {
	t, err := s.Get(ctx, tenantID)
	if err != nil {
		return telemetry.TenantTelemetry{}, err
	}
	return t.Metrics(), nil
}

// decodeInputs decodes what it can. Undecodable records are skipped so one
// malformed document cannot blank the whole dashboard.
func decodeInputs(snaps map[shared.Collection]*tenantsync.Snapshot, logger *zap.Logger) Inputs {
	var in Inputs
	warn := func(c shared.Collection, err error) {
		if err != nil {
			logger.Warn("Skipping undecodable records",
				zap.String("collection", string(c)),
				zap.Error(err),
			)
		}
	}

	if snap := snaps[shared.CollectionInvoices]; snap != nil {
		docs, err := tenantsync.Decode[document.CommercialDocument](snap)
		warn(shared.CollectionInvoices, err)
		in.Documents = docs
	}
	if snap := snaps[shared.CollectionProposals]; snap != nil {
		proposals, err := tenantsync.Decode[document.Proposal](snap)
		warn(shared.CollectionProposals, err)
		in.Proposals = proposals
	}
	if snap := snaps[shared.CollectionVouchers]; snap != nil {
		vouchers, err := tenantsync.Decode[document.Voucher](snap)
		warn(shared.CollectionVouchers, err)
		in.Vouchers = vouchers
	}
	if snap := snaps[shared.CollectionClients]; snap != nil {
		in.Clients = snap.Len()
	}
	return in
}

var _ telemetry.TelemetrySource = (*Service)(nil)
