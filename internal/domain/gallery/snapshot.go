package gallery

import "github.com/okian/rollcall/internal/domain/model"

// Snapshot is an immutable, point-in-time view of the gallery.
// Identities are shared between snapshots and must be treated as read-only.
type Snapshot struct {
	version    uint64
	identities []*model.Identity
	byID       map[int64]int
	byExternal map[string]int64
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		byID:       map[int64]int{},
		byExternal: map[string]int64{},
	}
}

// Version increases every time the gallery publishes a new snapshot.
func (s *Snapshot) Version() uint64 { return s.version }

// Len returns the number of identities.
func (s *Snapshot) Len() int { return len(s.identities) }

// At returns the i-th identity in enrollment order.
func (s *Snapshot) At(i int) *model.Identity { return s.identities[i] }

// Identities returns the identities in enrollment order. The slice is a copy;
// the pointed-to values are shared and must not be modified.
func (s *Snapshot) Identities() []*model.Identity {
	out := make([]*model.Identity, len(s.identities))
	copy(out, s.identities)
	return out
}

// Lookup finds an identity by internal id.
func (s *Snapshot) Lookup(id int64) (*model.Identity, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return s.identities[i], true
}

// LookupExternal finds an identity by external id.
func (s *Snapshot) LookupExternal(externalID string) (*model.Identity, bool) {
	id, ok := s.byExternal[externalID]
	if !ok {
		return nil, false
	}
	return s.Lookup(id)
}

// with returns a new snapshot containing s plus identity.
func (s *Snapshot) with(identity *model.Identity) *Snapshot {
	// Full slice expression forces append to copy instead of writing into
	// a backing array still visible to readers of s.
	next := &Snapshot{
		version:    s.version + 1,
		identities: append(s.identities[:len(s.identities):len(s.identities)], identity),
		byID:       make(map[int64]int, len(s.byID)+1),
		byExternal: make(map[string]int64, len(s.byExternal)+1),
	}
	for k, v := range s.byID {
		next.byID[k] = v
	}
	for k, v := range s.byExternal {
		next.byExternal[k] = v
	}
	next.byID[identity.InternalID] = len(next.identities) - 1
	if identity.ExternalID != "" {
		next.byExternal[identity.ExternalID] = identity.InternalID
	}
	return next
}
