package event

import (
	"testing"

	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry(t *testing.T) {
	registry := NewHandlerRegistry()
	created := testutil.NewMockEventHandler()
	wildcard := testutil.NewMockEventHandler()

	registry.Register(created, "DocumentCreated", "ProposalCreated")
	registry.Register(created, "DocumentCreated")
	registry.Register(wildcard)

	tests := []struct {
		eventType string
		want      []shared.EventHandler
	}{
		{"DocumentCreated", []shared.EventHandler{created, wildcard}},
		{"ProposalCreated", []shared.EventHandler{created, wildcard}},
		{"PaymentRecorded", []shared.EventHandler{wildcard}},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			assert.Equal(t, tt.want, registry.GetHandlers(tt.eventType))
		})
	}

	assert.Len(t, registry.GetAllHandlers(), 2)

	registry.Unregister(created)
	assert.Equal(t, []shared.EventHandler{wildcard}, registry.GetHandlers("DocumentCreated"))
	assert.Len(t, registry.GetAllHandlers(), 1)
}
