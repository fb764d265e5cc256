package tenantsync

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bizops/backend/internal/domain/shared"
	"github.com/tidwall/gjson"
)

// sortFields lists collections whose snapshots are ordered newest first by a
// timestamp field instead of feed order.
var sortFields = map[shared.Collection]string{
	shared.CollectionChatThreads: "updatedAt",
	shared.CollectionCampaigns:   "createdAt",
}

// Snapshot is the complete membership of one collection for one tenant at a
// point in time. A published Snapshot is never modified.
type Snapshot struct {
	collection shared.Collection
	tenantID   string
	records    []shared.Record
	index      map[string]int
}

// NewSnapshot builds a snapshot from feed records. Records are keyed by id:
// a repeated id keeps its first position and its last body.
func NewSnapshot(collection shared.Collection, tenantID string, records []shared.Record) *Snapshot {
	s := &Snapshot{
		collection: collection,
		tenantID:   tenantID,
		records:    make([]shared.Record, 0, len(records)),
		index:      make(map[string]int, len(records)),
	}
	for _, r := range records {
		if pos, ok := s.index[r.ID]; ok {
			s.records[pos] = r
			continue
		}
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}

	if field, ok := sortFields[collection]; ok {
		sortByTimestampDesc(s.records, field)
		for i, r := range s.records {
			s.index[r.ID] = i
		}
	}
	return s
}

// EmptySnapshot returns a snapshot with no records
func EmptySnapshot(collection shared.Collection, tenantID string) *Snapshot {
	return NewSnapshot(collection, tenantID, nil)
}

// Collection returns the collection the snapshot belongs to
func (s *Snapshot) Collection() shared.Collection { return s.collection }

// TenantID returns the tenant the snapshot was built for, "" after logout
func (s *Snapshot) TenantID() string { return s.tenantID }

// Len returns the number of records
func (s *Snapshot) Len() int { return len(s.records) }

// Get returns the record with the given id
func (s *Snapshot) Get(id string) (shared.Record, bool) {
	pos, ok := s.index[id]
	if !ok {
		return shared.Record{}, false
	}
	return s.records[pos], true
}

// Records returns a copy of the records in snapshot order
func (s *Snapshot) Records() []shared.Record {
	return append([]shared.Record(nil), s.records...)
}

// IDs returns record ids in snapshot order
func (s *Snapshot) IDs() []string {
	ids := make([]string, len(s.records))
	for i, r := range s.records {
		ids[i] = r.ID
	}
	return ids
}

// Decode unmarshals every record body into T. Records that fail to decode are
// skipped and reported together in the returned error.
func Decode[T any](s *Snapshot) ([]T, error) {
	out := make([]T, 0, len(s.records))
	var errs []error
	for _, r := range s.records {
		var v T
		if err := json.Unmarshal(r.Data, &v); err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", s.collection, r.ID, err))
			continue
		}
		out = append(out, v)
	}
	return out, errors.Join(errs...)
}

// DecodeOne unmarshals a single record body
func DecodeOne[T any](r shared.Record) (*T, error) {
	var v T
	if err := json.Unmarshal(r.Data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", r.Collection, r.ID, err)
	}
	return &v, nil
}

func sortByTimestampDesc(records []shared.Record, field string) {
	keys := make(map[string]int64, len(records))
	for _, r := range records {
		keys[r.ID] = timestampMillis(r.Data, field)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return keys[records[i].ID] > keys[records[j].ID]
	})
}

// timestampMillis reads field as epoch millis or an RFC3339 string. Missing
// or unparseable values sort last.
func timestampMillis(data []byte, field string) int64 {
	res := gjson.GetBytes(data, field)
	switch res.Type {
	case gjson.Number:
		return res.Int()
	case gjson.String:
		if t, err := time.Parse(time.RFC3339Nano, res.Str); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
