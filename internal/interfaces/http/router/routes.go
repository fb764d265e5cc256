package router

import (
	"github.com/bizops/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers are the HTTP handlers mounted under the versioned API
type Handlers struct {
	Health    *handler.HealthHandler
	Documents *handler.DocumentHandler
	Proposals *handler.ProposalHandler
	Vouchers  *handler.VoucherHandler
	Telemetry *handler.TelemetryHandler
	Stream    *handler.StreamHandler
	Session   *handler.SessionHandler
}

// Guards are the middleware chains put in front of authenticated groups.
// Auth reads the Authorization header only; StreamAuth also accepts the
// token as a query parameter. After runs behind either of them, so it can
// see the actor.
type Guards struct {
	Auth       gin.HandlerFunc
	StreamAuth gin.HandlerFunc
	After      []gin.HandlerFunc
}

func (g Guards) chain(auth gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(g.After)+1)
	if auth != nil {
		chain = append(chain, auth)
	}
	return append(chain, g.After...)
}

// DomainGroups builds the route groups of the API. Groups whose handler is
// nil are left out.
func DomainGroups(h Handlers, g Guards) []*DomainGroup {
	var groups []*DomainGroup

	if h.Health != nil {
		groups = append(groups, NewDomainGroup("system", "/health").GET("", h.Health.Get))
	}

	if h.Documents != nil {
		documents := NewDomainGroup("documents", "/documents").Use(g.chain(g.Auth)...)
		documents.POST("", h.Documents.Create)
		documents.PATCH("/:id/status", h.Documents.UpdateStatus)
		documents.POST("/:id/payments", h.Documents.RecordPayment)
		documents.POST("/:id/invoice", h.Documents.ConvertToInvoice)
		documents.POST("/:id/approve", h.Documents.Approve)
		documents.POST("/:id/reject", h.Documents.Reject)
		documents.DELETE("/:id", h.Documents.Delete)
		groups = append(groups, documents)
	}

	if h.Proposals != nil {
		proposals := NewDomainGroup("proposals", "/proposals").Use(g.chain(g.Auth)...)
		proposals.POST("", h.Proposals.Create)
		proposals.POST("/:id/lpo", h.Proposals.ConvertToLPO)
		proposals.POST("/:id/approve", h.Proposals.Approve)
		proposals.POST("/:id/reject", h.Proposals.Reject)
		groups = append(groups, proposals)
	}

	if h.Vouchers != nil {
		vouchers := NewDomainGroup("vouchers", "/vouchers").Use(g.chain(g.Auth)...)
		vouchers.POST("/expenses", h.Vouchers.RecordExpense)
		groups = append(groups, vouchers)
	}

	if h.Telemetry != nil {
		groups = append(groups, NewDomainGroup("telemetry", "/telemetry").
			Use(g.chain(g.Auth)...).
			GET("", h.Telemetry.Get))
	}

	if h.Stream != nil {
		streamAuth := g.StreamAuth
		if streamAuth == nil {
			streamAuth = g.Auth
		}
		groups = append(groups, NewDomainGroup("stream", "/stream").
			Use(g.chain(streamAuth)...).
			GET("", h.Stream.Stream))
	}

	if h.Session != nil {
		groups = append(groups, NewDomainGroup("session", "/session").
			Use(g.chain(g.Auth)...).
			POST("/logout", h.Session.Logout))
	}

	return groups
}

// RegisterAPI registers every domain group and sets the routes up
func (r *Router) RegisterAPI(h Handlers, g Guards) {
	for _, group := range DomainGroups(h, g) {
		r.Register(group)
	}
	r.Setup()
}
