package analytics

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bizops/backend/internal/application/tenantsync"
	"github.com/bizops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Aggregator keeps the latest telemetry of a Layer's active tenant. It
// recomputes synchronously inside the Layer's publication whenever one of the
// input collections changes and retains only the most recent result.
type Aggregator struct {
	layer *tenantsync.Layer
	options

	latest atomic.Pointer[Telemetry]
	stop   func()
	once   sync.Once
}

// NewAggregator attaches an Aggregator to layer
func NewAggregator(layer *tenantsync.Layer, opts ...Option) *Aggregator {
	a := &Aggregator{layer: layer, options: newOptions(opts)}
	a.recompute(layer.TenantID())
	a.stop = layer.OnUpdate(a.onSnapshot)
	return a
}

func (a *Aggregator) onSnapshot(snap *tenantsync.Snapshot) {
	if !isInput(snap.Collection()) {
		return
	}
	a.recompute(snap.TenantID())
}

// recompute reads the layer's current snapshots. During a tenant switch some
// collections still hold the previous tenant; those read as empty.
func (a *Aggregator) recompute(tenantID string) {
	snaps := make(map[shared.Collection]*tenantsync.Snapshot, len(InputCollections))
	for _, c := range InputCollections {
		snap := a.layer.Snapshot(c)
		if snap.TenantID() != tenantID {
			snap = tenantsync.EmptySnapshot(c, tenantID)
		}
		snaps[c] = snap
	}

	t := Compute(tenantID, decodeInputs(snaps, a.logger), a.now())
	a.latest.Store(t)

	if a.metrics != nil && tenantID != "" {
		a.metrics.RecordTelemetry(context.Background(), tenantID, t.Metrics())
	}
	a.logger.Debug("Telemetry recomputed",
		zap.String("tenant_id", tenantID),
		zap.String("total_earnings", t.TotalEarnings.String()),
		zap.String("pending_revenue", t.PendingRevenue.String()),
	)
	if a.onRecompute != nil {
		a.onRecompute(t)
	}
}

// Latest returns the most recent telemetry. It is never nil.
func (a *Aggregator) Latest() *Telemetry {
	return a.latest.Load()
}

// Close detaches the aggregator from the layer
func (a *Aggregator) Close() {
	a.once.Do(a.stop)
}

func isInput(c shared.Collection) bool {
	for _, in := range InputCollections {
		if in == c {
			return true
		}
	}
	return false
}
