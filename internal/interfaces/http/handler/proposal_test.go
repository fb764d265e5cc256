package handler

import (
	"net/http"
	"testing"

	"github.com/bizops/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposalHandler_ConvertToLPOAndInvoice(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, &owner, http.MethodPost, "/proposals", `{"title":"Fit-out","budget":"12000"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "PRP-0001", body.Get("data.proposal.id").String())
	assert.Equal(t, "Draft", body.Get("data.proposal.status").String())

	w, body = f.do(t, &owner, http.MethodPost, "/proposals/PRP-0001/lpo", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Created", body.Get("data.outcome").String())
	assert.Equal(t, "LPO-0001", body.Get("data.document.id").String())
	assert.Equal(t, "PRP-0001", body.Get("data.document.linkedProposalId").String())

	w, body = f.do(t, &owner, http.MethodPost, "/proposals/PRP-0001/lpo", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "AlreadyExists", body.Get("data.outcome").String())
	assert.Equal(t, "LPO-0001", body.Get("data.document.id").String())

	w, body = f.do(t, &owner, http.MethodPost, "/documents/LPO-0001/invoice", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "INV-0001", body.Get("data.document.id").String())
	assert.Equal(t, "LPO-0001", body.Get("data.document.sourceDocId").String())
	assertDecimal(t, "12000", body.Get("data.document.amountPaid"))

	w, body = f.do(t, &owner, http.MethodPost, "/documents/LPO-0001/invoice", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "AlreadyExists", body.Get("data.outcome").String())

	w, body = f.do(t, &owner, http.MethodPost, "/documents/INV-0001/invoice", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, errorCode(body))
}

func TestProposalHandler_Approval(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, &clerk, http.MethodPost, "/proposals", `{"title":"Annual retainer","budget":24000}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "PendingApproval", body.Get("data.proposal.status").String())

	w, body = f.do(t, &clerk, http.MethodPost, "/proposals/PRP-0001/approve", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrCodeForbidden, errorCode(body))

	w, body = f.do(t, &owner, http.MethodPost, "/proposals/PRP-0001/approve", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Draft", body.Get("data.proposal.status").String())

	w, body = f.do(t, &owner, http.MethodPost, "/proposals/PRP-0001/approve", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidState, errorCode(body))
}

func TestProposalHandler_Reject(t *testing.T) {
	f := newFixture(t)
	f.do(t, &owner, http.MethodPost, "/proposals", `{"title":"Logo","budget":800}`)

	w, _ := f.do(t, &owner, http.MethodPost, "/proposals/PRP-0001/reject", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body := f.do(t, &owner, http.MethodPost, "/proposals/PRP-0001/lpo", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidState, errorCode(body))

	w, body = f.do(t, &owner, http.MethodPost, "/proposals/PRP-0404/lpo", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, errorCode(body))
}

func TestProposalHandler_CreateRejections(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, &customer, http.MethodPost, "/proposals", `{"title":"x","budget":1}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrCodeForbidden, errorCode(body))

	w, body = f.do(t, &owner, http.MethodPost, "/proposals", `{"budget":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, errorCode(body))
}

func TestVoucherHandler_RecordExpense(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, &clerk, http.MethodPost, "/vouchers/expenses", `{"amount":10,"category":"Travel"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrCodeForbidden, errorCode(body))

	w, body = f.do(t, &owner, http.MethodPost, "/vouchers/expenses",
		`{"amount":"75.50","category":"Travel","description":"Taxi to client site","date":"2026-03-01"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "EXP-0001", body.Get("data.voucher.id").String())
	assert.Equal(t, "2026-03-01", body.Get("data.voucher.date").String())
	assertDecimal(t, "75.5", body.Get("data.voucher.amount"))

	w, body = f.do(t, &owner, http.MethodPost, "/vouchers/expenses", `{"amount":10,"category":"Travel","date":"yesterday"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, errorCode(body))
}
