package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bizops/backend/internal/domain/document"
	"github.com/bizops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditEntry is one row of the auditLogs collection
type AuditEntry struct {
	ID            string          `json:"id"`
	CompanyID     string          `json:"companyId"`
	Action        string          `json:"action"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	ActorID       string          `json:"actorId,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// AuditTrailHandler appends every lifecycle event to the tenant's auditLogs
type AuditTrailHandler struct {
	store  shared.DocumentStore
	logger *zap.Logger
}

// NewAuditTrailHandler creates a new AuditTrailHandler
func NewAuditTrailHandler(store shared.DocumentStore, logger *zap.Logger) *AuditTrailHandler {
	return &AuditTrailHandler{store: store, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *AuditTrailHandler) EventTypes() []string {
	return []string{
		document.EventTypeDocumentCreated,
		document.EventTypeDocumentStatusChanged,
		document.EventTypePaymentRecorded,
		document.EventTypeDocumentConverted,
		document.EventTypeDocumentDeleted,
		document.EventTypeApprovalRequested,
		document.EventTypeProposalCreated,
		document.EventTypeProposalDecided,
		document.EventTypeVoucherCreated,
	}
}

// Handle writes the audit entry
func (h *AuditTrailHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.EventType(), err)
	}
	entry := AuditEntry{
		ID:            event.EventID().String(),
		CompanyID:     event.TenantID(),
		Action:        event.EventType(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		ActorID:       actorOf(event),
		Payload:       payload,
		CreatedAt:     event.OccurredAt(),
	}
	err = insertJSON(ctx, h.store, shared.CollectionAuditLogs, entry.CompanyID, entry.ID, entry, entry.CreatedAt)
	if errors.Is(err, shared.ErrAlreadyExists) {
		// redelivered event, the entry id is the event id
		return nil
	}
	if err != nil {
		h.logger.Error("Failed to write audit entry",
			zap.String("tenant_id", entry.CompanyID),
			zap.String("action", entry.Action),
			zap.String("aggregate_id", entry.AggregateID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Notification is one row of the notifications collection
type Notification struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"companyId"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	TargetID    string    `json:"targetId"`
	TargetType  string    `json:"targetType"`
	Audience    string    `json:"audience"`
	RequestedBy string    `json:"requestedBy,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ApprovalNotifier leaves a notification for the tenant's Owners whenever
// something is parked in PendingApproval
type ApprovalNotifier struct {
	store  shared.DocumentStore
	logger *zap.Logger
}

// NewApprovalNotifier creates a new ApprovalNotifier
func NewApprovalNotifier(store shared.DocumentStore, logger *zap.Logger) *ApprovalNotifier {
	return &ApprovalNotifier{store: store, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (n *ApprovalNotifier) EventTypes() []string {
	return []string{document.EventTypeApprovalRequested}
}

// Handle writes the notification
func (n *ApprovalNotifier) Handle(ctx context.Context, event shared.DomainEvent) error {
	requested, ok := event.(*document.ApprovalRequestedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			document.EventTypeApprovalRequested, event.EventType())
	}

	msg := fmt.Sprintf("%s %s is awaiting approval (requested %s)",
		requested.AggregateType(), requested.AggregateID(), requested.RequestedStatus)
	if requested.PaymentAmount != nil {
		msg = fmt.Sprintf("Payment of %s on %s is awaiting approval",
			requested.PaymentAmount.String(), requested.AggregateID())
	}

	note := Notification{
		ID:          uuid.NewString(),
		CompanyID:   requested.TenantID(),
		Kind:        "approval_request",
		Title:       "Approval required",
		Message:     msg,
		TargetID:    requested.AggregateID(),
		TargetType:  requested.AggregateType(),
		Audience:    "Owner",
		RequestedBy: requested.ActorID,
		CreatedAt:   requested.OccurredAt(),
	}
	if err := insertJSON(ctx, n.store, shared.CollectionNotifications, note.CompanyID, note.ID, note, note.CreatedAt); err != nil {
		n.logger.Error("Failed to write approval notification",
			zap.String("tenant_id", note.CompanyID),
			zap.String("target_id", note.TargetID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func insertJSON(ctx context.Context, store shared.DocumentStore, c shared.Collection, companyID, id string, v any, at time.Time) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", c, id, err)
	}
	return store.Insert(ctx, &shared.Record{
		Collection: c,
		ID:         id,
		CompanyID:  companyID,
		Data:       data,
		CreatedAt:  at,
		UpdatedAt:  at,
	})
}

type actorCarrier interface {
	Actor() string
}

func actorOf(event shared.DomainEvent) string {
	if a, ok := event.(actorCarrier); ok {
		return a.Actor()
	}
	return ""
}

var (
	_ shared.EventHandler = (*AuditTrailHandler)(nil)
	_ shared.EventHandler = (*ApprovalNotifier)(nil)
)
