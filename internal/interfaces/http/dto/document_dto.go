package dto

import (
	"github.com/bizops/backend/internal/application/lifecycle"
	"github.com/bizops/backend/internal/domain/document"
	"github.com/shopspring/decimal"
)

// UpdateStatusRequest is the body of PATCH /documents/:id/status
type UpdateStatusRequest struct {
	Status document.Status `json:"status" binding:"required"`
}

// RecordPaymentRequest is the body of POST /documents/:id/payments
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ResultResponse is the data of every lifecycle mutation
type ResultResponse struct {
	Outcome  lifecycle.Outcome            `json:"outcome"`
	Document *document.CommercialDocument `json:"document,omitempty"`
	Proposal *document.Proposal           `json:"proposal,omitempty"`
	Voucher  *document.Voucher            `json:"voucher,omitempty"`
}

// NewResultResponse converts an engine result
func NewResultResponse(r *lifecycle.Result) ResultResponse {
	return ResultResponse{
		Outcome:  r.Outcome,
		Document: r.Document,
		Proposal: r.Proposal,
		Voucher:  r.Voucher,
	}
}

// LogoutResponse reports what a logout revoked
type LogoutResponse struct {
	AllSessions     bool `json:"all_sessions"`
	StreamsNotified int  `json:"streams_notified"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Checks   map[string]string `json:"checks,omitempty"`
	Uptime   string            `json:"uptime,omitempty"`
	Instance string            `json:"instance,omitempty"`
}
