package handler

import (
	"context"

	"github.com/bizops/backend/internal/application/lifecycle"
	"github.com/bizops/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
)

// ProposalLifecycle is the part of the lifecycle engine serving proposals
type ProposalLifecycle interface {
	CreateProposal(ctx context.Context, actor identity.Actor, in lifecycle.CreateProposalInput) (*lifecycle.Result, error)
	ApproveProposal(ctx context.Context, actor identity.Actor, id string) (*lifecycle.Result, error)
	RejectProposal(ctx context.Context, actor identity.Actor, id string) (*lifecycle.Result, error)
	ConvertProposalToLPO(ctx context.Context, actor identity.Actor, id string) (*lifecycle.Result, error)
}

// ProposalHandler handles proposal endpoints
type ProposalHandler struct {
	BaseHandler
	engine ProposalLifecycle
}

// NewProposalHandler creates a new ProposalHandler
func NewProposalHandler(engine ProposalLifecycle) *ProposalHandler {
	return &ProposalHandler{engine: engine}
}

// Create godoc
//
//	@Summary	Create a proposal
//	@Tags		proposals
//	@Accept		json
//	@Produce	json
//	@Param		request	body		lifecycle.CreateProposalInput	true	"Proposal"
//	@Success	201		{object}	dto.Response{data=dto.ResultResponse}
//	@Failure	400		{object}	dto.Response
//	@Security		BearerAuth
//	@Router		/proposals [post]
func (h *ProposalHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req lifecycle.CreateProposalInput
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.engine.CreateProposal(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Result(c, res)
}

// Approve godoc
//
//	@Summary	Approve a proposal
//	@Tags		proposals
//	@Produce	json
//	@Param		id	path		string	true	"Proposal ID"
//	@Success	200	{object}	dto.Response{data=dto.ResultResponse}
//	@Security		BearerAuth
//	@Router		/proposals/{id}/approve [post]
func (h *ProposalHandler) Approve(c *gin.Context) {
	h.act(c, h.engine.ApproveProposal)
}

// Reject godoc
//
//	@Summary	Reject a proposal
//	@Tags		proposals
//	@Produce	json
//	@Param		id	path		string	true	"Proposal ID"
//	@Success	200	{object}	dto.Response{data=dto.ResultResponse}
//	@Security		BearerAuth
//	@Router		/proposals/{id}/reject [post]
func (h *ProposalHandler) Reject(c *gin.Context) {
	h.act(c, h.engine.RejectProposal)
}

// ConvertToLPO godoc
//
//	@Summary		Convert a proposal into an LPO
//	@Description	Idempotent: converting twice returns the existing LPO
//	@Tags			proposals
//	@Produce		json
//	@Param			id	path		string	true	"Proposal ID"
//	@Success		201	{object}	dto.Response{data=dto.ResultResponse}
//	@Success		200	{object}	dto.Response{data=dto.ResultResponse}	"LPO already exists"
//	@Security			BearerAuth
//	@Router			/proposals/{id}/lpo [post]
func (h *ProposalHandler) ConvertToLPO(c *gin.Context) {
	h.act(c, h.engine.ConvertProposalToLPO)
}
