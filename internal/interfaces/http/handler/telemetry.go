package handler

import (
	"context"

	"github.com/bizops/backend/internal/application/analytics"
	"github.com/bizops/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
)

// TelemetryReader computes a tenant's financial telemetry
type TelemetryReader interface {
	Get(ctx context.Context, tenantID string) (*analytics.Telemetry, error)
}

// TelemetryHandler serves the caller's tenant dashboard figures
type TelemetryHandler struct {
	BaseHandler
	reader TelemetryReader
}

// NewTelemetryHandler creates a new TelemetryHandler
func NewTelemetryHandler(reader TelemetryReader) *TelemetryHandler {
	return &TelemetryHandler{reader: reader}
}

// Get godoc
//
//	@Summary	Get the caller's tenant telemetry
//	@Tags		telemetry
//	@Produce	json
//	@Success	200	{object}	dto.Response{data=analytics.Telemetry}
//	@Failure	403	{object}	dto.Response
//	@Failure	503	{object}	dto.Response
//	@Security		BearerAuth
//	@Router		/telemetry [get]
func (h *TelemetryHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	if !actor.CanAny(identity.CapViewFinance, identity.CapManageFinance) {
		h.Forbidden(c, "Viewing telemetry requires finance access")
		return
	}

	t, err := h.reader.Get(c.Request.Context(), actor.CompanyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, t)
}
