package document

import "strings"

// DocumentType distinguishes the commercial documents kept in the invoices
// collection
type DocumentType string

const (
	TypeInvoice DocumentType = "Invoice"
	TypeLPO     DocumentType = "LPO"
)

// IsValid checks if the document type is known
func (t DocumentType) IsValid() bool {
	return t == TypeInvoice || t == TypeLPO
}

// String returns the string representation of DocumentType
func (t DocumentType) String() string {
	return string(t)
}

// Status is the lifecycle state of a commercial document
type Status string

const (
	StatusDraft           Status = "Draft"
	StatusSent            Status = "Sent"
	StatusPartial         Status = "Partial"
	StatusPaid            Status = "Paid"
	StatusOverdue         Status = "Overdue"
	StatusPendingApproval Status = "PendingApproval"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusPaid
}

// AcceptsPayment reports whether a payment can be recorded in this status
func (s Status) AcceptsPayment() bool {
	return s == StatusSent || s == StatusPartial || s == StatusOverdue
}

// transitions is the document state machine. Leaving PendingApproval is
// restricted to privileged actors by the engine, not here.
var transitions = map[Status][]Status{
	StatusDraft:           {StatusSent, StatusPendingApproval},
	StatusSent:            {StatusPartial, StatusPaid, StatusOverdue, StatusPendingApproval},
	StatusPartial:         {StatusPaid, StatusPendingApproval},
	StatusOverdue:         {StatusPartial, StatusPaid, StatusPendingApproval},
	StatusPendingApproval: {StatusDraft, StatusSent, StatusPaid, StatusPartial},
	StatusPaid:            {},
}

// ApprovalTarget is the status an approval should restore when a document in
// s is sent for approval. Overdue is not reachable from PendingApproval; it is
// restored as Sent and overdue-ness keeps following the due date.
func (s Status) ApprovalTarget() Status {
	if StatusPendingApproval.CanTransitionTo(s) {
		return s
	}
	return StatusSent
}

func joinStatuses(statuses []Status) string {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}

// CanTransitionTo reports whether the state machine allows s -> next
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ProposalStatus is the lifecycle state of a proposal
type ProposalStatus string

const (
	ProposalDraft           ProposalStatus = "Draft"
	ProposalPendingApproval ProposalStatus = "PendingApproval"
	ProposalAccepted        ProposalStatus = "Accepted"
	ProposalRejected        ProposalStatus = "Rejected"
)

// IsValid checks if the proposal status is known
func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalDraft, ProposalPendingApproval, ProposalAccepted, ProposalRejected:
		return true
	}
	return false
}

// VoucherType distinguishes money in from money out
type VoucherType string

const (
	VoucherExpense VoucherType = "EXPENSE"
	VoucherReceipt VoucherType = "RECEIPT"
)

// IsValid checks if the voucher type is known
func (t VoucherType) IsValid() bool {
	return t == VoucherExpense || t == VoucherReceipt
}
