package shared

import (
	"context"
	"encoding/json"
	"time"
)

// Collection names a tenant-partitioned set of documents in the store
type Collection string

const (
	CollectionClients       Collection = "clients"
	CollectionCatalog       Collection = "catalog"
	CollectionProposals     Collection = "proposals"
	CollectionInvoices      Collection = "invoices"
	CollectionNotifications Collection = "notifications"
	CollectionChatThreads   Collection = "chatThreads"
	CollectionEvents        Collection = "events"
	CollectionAuditLogs     Collection = "auditLogs"
	CollectionVouchers      Collection = "vouchers"
	CollectionCampaigns     Collection = "campaigns"

	// CollectionSequences holds the per-tenant id counters. It is internal
	// to the engine and never streamed to clients.
	CollectionSequences Collection = "sequences"
)

// TrackedCollections lists every collection a tenant session keeps in sync
var TrackedCollections = []Collection{
	CollectionClients,
	CollectionCatalog,
	CollectionProposals,
	CollectionInvoices,
	CollectionNotifications,
	CollectionChatThreads,
	CollectionEvents,
	CollectionAuditLogs,
	CollectionVouchers,
	CollectionCampaigns,
}

// IsValid reports whether c is one of the known collections
func (c Collection) IsValid() bool {
	if c == CollectionSequences {
		return true
	}
	for _, known := range TrackedCollections {
		if c == known {
			return true
		}
	}
	return false
}

// Record is one opaque document as held by the store. Data is the JSON body;
// Version increments on every successful update.
type Record struct {
	Collection Collection      `json:"collection"`
	ID         string          `json:"id"`
	CompanyID  string          `json:"companyId"`
	Data       json.RawMessage `json:"data"`
	Version    int64           `json:"version"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// FeedHandler receives the full membership of a subscribed collection after
// every change, or an error when the feed fails. Records arrive in insertion
// order.
type FeedHandler func(records []Record, err error)

// Subscription is a live change feed. Close blocks until no further handler
// invocation can happen.
type Subscription interface {
	Close() error
}

// DocumentStore is the tenant-partitioned document store adapter. Every call
// is scoped to a single companyId; nothing crosses tenants.
type DocumentStore interface {
	// Get returns ErrNotFound when the document does not exist
	Get(ctx context.Context, collection Collection, companyID, id string) (*Record, error)

	// List returns the collection's documents in insertion order
	List(ctx context.Context, collection Collection, companyID string) ([]Record, error)

	// Insert stores a new document at version 1. Returns ErrAlreadyExists when
	// the id is taken.
	Insert(ctx context.Context, rec *Record) error

	// Update replaces the document body if rec.Version still matches the
	// stored version, then bumps rec.Version. Returns ErrConcurrencyConflict on
	// a version mismatch and ErrNotFound if the document is gone.
	Update(ctx context.Context, rec *Record) error

	// Delete removes the document. Returns ErrNotFound if absent.
	Delete(ctx context.Context, collection Collection, companyID, id string) error

	// Subscribe opens a change feed. The handler is called once with the
	// current membership and again after every change until Close.
	Subscribe(ctx context.Context, collection Collection, companyID string, handler FeedHandler) (Subscription, error)
}
