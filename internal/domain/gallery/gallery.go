// Package gallery holds the enrolled identities used for matching.
//
// Readers take lock-free snapshots; enrollments are serialized by a single
// writer lock and published by swapping an atomic pointer, so matching never
// waits behind an enrollment that is busy persisting.
package gallery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/metrics"
)

const defaultDimension = 128

// Store is the persistence collaborator that makes enrollments durable.
type Store interface {
	// SaveIdentity durably stores one identity. The gallery publishes the
	// identity only after SaveIdentity returns nil.
	SaveIdentity(ctx context.Context, identity model.Identity) error
	// LoadIdentities returns every persisted identity.
	LoadIdentities(ctx context.Context) ([]model.Identity, error)
}

// Enrollment is the caller-supplied part of a new Identity.
type Enrollment struct {
	ExternalID  string
	DisplayName string
	Section     string
	Grade       string
	Vector      []float64
}

// Gallery is the set of enrolled identities.
type Gallery struct {
	mu        sync.Mutex // serializes writers
	snapshot  atomic.Pointer[Snapshot]
	nextID    int64 // guarded by mu
	dimension int
	store     Store
	now       func() time.Time
}

// New creates an empty gallery.
func New(opts ...Option) *Gallery {
	g := &Gallery{
		nextID:    1,
		dimension: defaultDimension,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.snapshot.Store(emptySnapshot())
	return g
}

// Dimension returns the enforced feature vector dimension.
func (g *Gallery) Dimension() int { return g.dimension }

// Snapshot returns the current read-consistent view.
func (g *Gallery) Snapshot() *Snapshot { return g.snapshot.Load() }

// Len returns the number of enrolled identities.
func (g *Gallery) Len() int { return g.Snapshot().Len() }

// Lookup finds an identity by internal id in the current snapshot.
func (g *Gallery) Lookup(id int64) (*model.Identity, bool) {
	return g.Snapshot().Lookup(id)
}

// Enroll validates, persists and publishes a new identity and returns its internal id.
func (g *Gallery) Enroll(ctx context.Context, e Enrollment) (int64, error) {
	e.ExternalID = strings.TrimSpace(e.ExternalID)
	e.DisplayName = strings.TrimSpace(e.DisplayName)
	if e.DisplayName == "" {
		metrics.RecordEnrollError("invalid_enrollment")
		return 0, fmt.Errorf("%w: display name is required", ErrInvalidEnrollment)
	}
	if err := model.ValidateVector(e.Vector, g.dimension); err != nil {
		metrics.RecordEnrollError("invalid_vector")
		return 0, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.snapshot.Load()
	if e.ExternalID != "" {
		if _, exists := cur.byExternal[e.ExternalID]; exists {
			metrics.RecordEnrollError("duplicate_external_id")
			return 0, fmt.Errorf("%w: %s", ErrDuplicateExternalID, e.ExternalID)
		}
	}

	// The id is consumed even if persistence fails so it is never handed out twice.
	id := g.nextID
	g.nextID++

	identity := &model.Identity{
		InternalID:  id,
		ExternalID:  e.ExternalID,
		DisplayName: e.DisplayName,
		Section:     strings.TrimSpace(e.Section),
		Grade:       strings.TrimSpace(e.Grade),
		Vector:      model.CloneVector(e.Vector),
		EnrolledAt:  g.now().UTC(),
	}

	if g.store != nil {
		if err := g.store.SaveIdentity(ctx, *identity); err != nil {
			metrics.RecordEnrollError("persist_failed")
			return 0, fmt.Errorf("%w: %w", ErrPersist, err)
		}
	}

	next := cur.with(identity)
	g.snapshot.Store(next)

	metrics.RecordEnrollment()
	metrics.UpdateGallerySize(next.Len())
	return id, nil
}

// Load replaces the gallery contents with what the store holds.
// It is meant to run once at startup before matching begins.
func (g *Gallery) Load(ctx context.Context) (int, error) {
	if g.store == nil {
		return 0, nil
	}

	identities, err := g.store.LoadIdentities(ctx)
	if err != nil {
		return 0, fmt.Errorf("load identities: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	snap := emptySnapshot()
	snap.version = g.snapshot.Load().version + 1
	snap.identities = make([]*model.Identity, 0, len(identities))
	maxID := int64(0)
	for i := range identities {
		identity := identities[i]
		if err := model.ValidateVector(identity.Vector, g.dimension); err != nil {
			return 0, fmt.Errorf("%w: identity %d: %w", ErrCorruptStore, identity.InternalID, err)
		}
		if _, dup := snap.byID[identity.InternalID]; dup {
			return 0, fmt.Errorf("%w: duplicate internal id %d", ErrCorruptStore, identity.InternalID)
		}
		if identity.ExternalID != "" {
			if _, dup := snap.byExternal[identity.ExternalID]; dup {
				return 0, fmt.Errorf("%w: duplicate external id %s", ErrCorruptStore, identity.ExternalID)
			}
		}
		identity.Vector = model.CloneVector(identity.Vector)
		snap.identities = append(snap.identities, &identity)
		snap.byID[identity.InternalID] = len(snap.identities) - 1
		if identity.ExternalID != "" {
			snap.byExternal[identity.ExternalID] = identity.InternalID
		}
		if identity.InternalID > maxID {
			maxID = identity.InternalID
		}
	}

	if maxID >= g.nextID {
		g.nextID = maxID + 1
	}
	g.snapshot.Store(snap)
	metrics.UpdateGallerySize(snap.Len())
	return snap.Len(), nil
}
