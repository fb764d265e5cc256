package handler

import (
	"context"

	"github.com/bizops/backend/internal/application/lifecycle"
	"github.com/bizops/backend/internal/domain/document"
	"github.com/bizops/backend/internal/domain/identity"
	"github.com/bizops/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// DocumentLifecycle is the part of the lifecycle engine serving invoices and
// LPOs
type DocumentLifecycle interface {
	CreateDocument(ctx context.Context, actor identity.Actor, in lifecycle.CreateDocumentInput) (*lifecycle.Result, error)
	UpdateDocumentStatus(ctx context.Context, actor identity.Actor, id string, status document.Status) (*lifecycle.Result, error)
	RecordPayment(ctx context.Context, actor identity.Actor, id string, amount decimal.Decimal) (*lifecycle.Result, error)
	ConvertDocumentToInvoice(ctx context.Context, actor identity.Actor, sourceID string) (*lifecycle.Result, error)
	ApprovePending(ctx context.Context, actor identity.Actor, id string) (*lifecycle.Result, error)
	RejectPending(ctx context.Context, actor identity.Actor, id string) (*lifecycle.Result, error)
	DeleteDocument(ctx context.Context, actor identity.Actor, id string) (*lifecycle.Result, error)
}

// DocumentHandler handles invoice and LPO endpoints
type DocumentHandler struct {
	BaseHandler
	engine DocumentLifecycle
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(engine DocumentLifecycle) *DocumentHandler {
	return &DocumentHandler{engine: engine}
}

// Create godoc
//
//	@Summary	Create an invoice or LPO
//	@Tags		documents
//	@Accept		json
//	@Produce	json
//	@Param		request	body		lifecycle.CreateDocumentInput	true	"Document"
//	@Success	201		{object}	dto.Response{data=dto.ResultResponse}
//	@Failure	400		{object}	dto.Response
//	@Failure	403		{object}	dto.Response
//	@Security		BearerAuth
//	@Router		/documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req lifecycle.CreateDocumentInput
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.engine.CreateDocument(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Result(c, res)
}

// UpdateStatus godoc
//
//	@Summary	Change a document's status
//	@Tags		documents
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"Document ID"
//	@Param		request	body		dto.UpdateStatusRequest	true	"Status"
//	@Success	200		{object}	dto.Response{data=dto.ResultResponse}
//	@Failure	404		{object}	dto.Response
//	@Failure	422		{object}	dto.Response
//	@Security		BearerAuth
//	@Router		/documents/{id}/status [patch]
func (h *DocumentHandler) UpdateStatus(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.engine.UpdateDocumentStatus(c.Request.Context(), actor, c.Param("id"), req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Result(c, res)
}

// RecordPayment godoc
//
//	@Summary		Record a payment against an invoice
//	@Description	Privileged payments apply immediately; others wait for Owner clearance
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Invoice ID"
//	@Param			request	body		dto.RecordPaymentRequest	true	"Payment"
//	@Success		200		{object}	dto.Response{data=dto.ResultResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		422		{object}	dto.Response
//	@Security			BearerAuth
//	@Router			/documents/{id}/payments [post]
func (h *DocumentHandler) RecordPayment(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.engine.RecordPayment(c.Request.Context(), actor, c.Param("id"), req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Result(c, res)
}

// ConvertToInvoice godoc
//
//	@Summary	Synthesize an invoice from an LPO
//	@Tags		documents
//	@Produce	json
//	@Param		id	path		string	true	"Source document ID"
//	@Success	201	{object}	dto.Response{data=dto.ResultResponse}
//	@Success	200	{object}	dto.Response{data=dto.ResultResponse}	"Invoice already exists"
//	@Security		BearerAuth
//	@Router		/documents/{id}/invoice [post]
func (h *DocumentHandler) ConvertToInvoice(c *gin.Context) {
	h.act(c, h.engine.ConvertDocumentToInvoice)
}

// Approve clears a pending payment
//
//	@Summary	Approve a pending payment
//	@Tags		documents
//	@Produce	json
//	@Param		id	path		string	true	"Invoice ID"
//	@Success	200	{object}	dto.Response{data=dto.ResultResponse}
//	@Security		BearerAuth
//	@Router		/documents/{id}/approve [post]
func (h *DocumentHandler) Approve(c *gin.Context) {
	h.act(c, h.engine.ApprovePending)
}

// Reject discards a pending payment
//
//	@Summary	Reject a pending payment
//	@Tags		documents
//	@Produce	json
//	@Param		id	path		string	true	"Invoice ID"
//	@Success	200	{object}	dto.Response{data=dto.ResultResponse}
//	@Security		BearerAuth
//	@Router		/documents/{id}/reject [post]
func (h *DocumentHandler) Reject(c *gin.Context) {
	h.act(c, h.engine.RejectPending)
}

// Delete godoc
//
//	@Summary	Delete a document
//	@Tags		documents
//	@Produce	json
//	@Param		id	path		string	true	"Document ID"
//	@Success	200	{object}	dto.Response{data=dto.ResultResponse}
//	@Failure	403	{object}	dto.Response
//	@Failure	404	{object}	dto.Response
//	@Security		BearerAuth
//	@Router		/documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	h.act(c, h.engine.DeleteDocument)
}

type idAction func(ctx context.Context, actor identity.Actor, id string) (*lifecycle.Result, error)

// act runs a body-less operation on the :id path parameter
func (h *BaseHandler) act(c *gin.Context, fn idAction) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	res, err := fn(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Result(c, res)
}
