package handler

import (
	"context"

	"github.com/bizops/backend/internal/application/lifecycle"
	"github.com/bizops/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
)

// ExpenseRecorder records expense vouchers
type ExpenseRecorder interface {
	RecordExpense(ctx context.Context, actor identity.Actor, in lifecycle.RecordExpenseInput) (*lifecycle.Result, error)
}

// VoucherHandler handles voucher endpoints
type VoucherHandler struct {
	BaseHandler
	engine ExpenseRecorder
}

// NewVoucherHandler creates a new VoucherHandler
func NewVoucherHandler(engine ExpenseRecorder) *VoucherHandler {
	return &VoucherHandler{engine: engine}
}

// RecordExpense godoc
//
//	@Summary	Record an expense voucher
//	@Tags		vouchers
//	@Accept		json
//	@Produce	json
//	@Param		request	body		lifecycle.RecordExpenseInput	true	"Expense"
//	@Success	201		{object}	dto.Response{data=dto.ResultResponse}
//	@Failure	400		{object}	dto.Response
//	@Failure	403		{object}	dto.Response
//	@Security		BearerAuth
//	@Router		/vouchers/expenses [post]
func (h *VoucherHandler) RecordExpense(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req lifecycle.RecordExpenseInput
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.engine.RecordExpense(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Result(c, res)
}
