package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bizops/backend/internal/application/tenantsync"
	"github.com/bizops/backend/internal/domain/document"
	"github.com/bizops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// maxSequenceAttempts bounds counter CAS retries under concurrent creation
const maxSequenceAttempts = 16

// sequence is the id counter of one prefix within a tenant. Last only grows:
// deleting a document never hands its number out again, so references by id
// (sourceDocId, linkedDocId) can never point at a newer record.
type sequence struct {
	Prefix string `json:"prefix"`
	Last   int    `json:"last"`
}

// reserveID takes the next number from the tenant's counter for prefix. A
// missing counter is created past the highest id already present in c, which
// covers records written before counters existed.
func (e *Engine) reserveID(ctx context.Context, c shared.Collection, tenantID, prefix string) (string, error) {
	for attempt := 0; attempt < maxSequenceAttempts; attempt++ {
		rec, err := e.store.Get(ctx, shared.CollectionSequences, tenantID, prefix)
		if errors.Is(err, shared.ErrNotFound) {
			id, err := e.startSequence(ctx, c, tenantID, prefix)
			if errors.Is(err, shared.ErrAlreadyExists) {
				continue
			}
			return id, err
		}
		if err != nil {
			return "", shared.StoreUnavailable(err)
		}

		seq, err := tenantsync.DecodeOne[sequence](*rec)
		if err != nil {
			return "", shared.StoreUnavailable(err)
		}
		seq.Last++
		if err := e.put(ctx, rec, seq); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				continue
			}
			return "", err
		}
		return document.FormatID(prefix, seq.Last), nil
	}
	return "", shared.NewConcurrencyError(fmt.Sprintf("%s counter kept changing, giving up", prefix))
}

func (e *Engine) startSequence(ctx context.Context, c shared.Collection, tenantID, prefix string) (string, error) {
	snap, err := e.source.Read(ctx, tenantID, c)
	if err != nil {
		return "", shared.StoreUnavailable(err)
	}
	seq := sequence{Prefix: prefix, Last: document.HighestSequence(prefix, snap.IDs()) + 1}
	data, err := json.Marshal(seq)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s counter: %w", prefix, err)
	}
	now := e.now()
	err = e.store.Insert(ctx, &shared.Record{
		Collection: shared.CollectionSequences,
		ID:         prefix,
		CompanyID:  tenantID,
		Data:       data,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return "", err
		}
		return "", shared.StoreUnavailable(err)
	}
	e.logger.Debug("Id counter started",
		zap.String("tenant_id", tenantID),
		zap.String("prefix", prefix),
		zap.Int("first", seq.Last),
	)
	return document.FormatID(prefix, seq.Last), nil
}
