package matcher

import (
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/okian/rollcall/internal/domain/gallery"
)

// Default HNSW parameters.
const (
	defaultCandidates   = 8
	defaultMaxNeighbors = 16
	defaultEfSearch     = 64
)

// IndexOption applies a configuration option to the Indexed matcher.
type IndexOption func(*Indexed)

// WithCandidates sets how many approximate neighbors are re-ranked exactly.
func WithCandidates(k int) IndexOption {
	return func(x *Indexed) {
		if k > 0 {
			x.candidates = k
		}
	}
}

// WithMaxNeighbors sets the HNSW M parameter.
func WithMaxNeighbors(m int) IndexOption {
	return func(x *Indexed) {
		if m > 1 {
			x.maxNeighbors = m
		}
	}
}

// WithEfSearch sets the HNSW search breadth.
func WithEfSearch(ef int) IndexOption {
	return func(x *Indexed) {
		if ef > 0 {
			x.efSearch = ef
		}
	}
}

// Indexed answers matches from an HNSW graph built per gallery snapshot.
// Candidates are re-ranked by exact float64 distance so the threshold
// contract is the same as Linear; recall is approximate on large galleries.
type Indexed struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[int64]
	version uint64
	built   bool

	candidates   int
	maxNeighbors int
	efSearch     int
}

// NewIndexed creates an Indexed matcher; the graph is built lazily.
func NewIndexed(opts ...IndexOption) *Indexed {
	x := &Indexed{
		candidates:   defaultCandidates,
		maxNeighbors: defaultMaxNeighbors,
		efSearch:     defaultEfSearch,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Match implements Matcher.
func (x *Indexed) Match(query []float64, snap *gallery.Snapshot, threshold float64) Outcome {
	if !usableThreshold(threshold) || snap == nil || snap.Len() == 0 {
		return Unmatched
	}
	if len(query) != len(snap.At(0).Vector) {
		return Unmatched
	}

	x.mu.RLock()
	if !x.built || x.version != snap.Version() {
		stale := x.built && snap.Version() < x.version
		x.mu.RUnlock()
		if stale {
			// A caller holding an older snapshot must not rebuild the graph backwards.
			return Linear{}.Match(query, snap, threshold)
		}
		x.rebuild(snap)
		x.mu.RLock()
	}
	defer x.mu.RUnlock()

	if x.version != snap.Version() {
		return Linear{}.Match(query, snap, threshold)
	}

	nodes := x.graph.Search(toFloat32(query), x.candidates)

	out := Unmatched
	bestID := int64(math.MaxInt64)
	best := math.Inf(1)
	for _, n := range nodes {
		identity, ok := snap.Lookup(n.Key)
		if !ok {
			continue
		}
		d := EuclideanDistance(query, identity.Vector)
		// Exact ties resolve to the lowest internal id, matching snapshot order.
		if d < best || (d == best && n.Key < bestID) {
			best, bestID = d, n.Key
			out = Outcome{Matched: true, InternalID: n.Key, Distance: d}
		}
	}
	if !out.Matched || out.Distance > threshold {
		return Unmatched
	}
	return out
}

// rebuild replaces the graph with one built from snap unless a newer one exists.
func (x *Indexed) rebuild(snap *gallery.Snapshot) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.built && x.version >= snap.Version() {
		return
	}

	g := hnsw.NewGraph[int64]()
	g.M = x.maxNeighbors
	g.Ml = 1.0 / float64(x.maxNeighbors)
	g.EfSearch = x.efSearch
	g.Distance = hnsw.EuclideanDistance

	for i := 0; i < snap.Len(); i++ {
		identity := snap.At(i)
		g.Add(hnsw.MakeNode(identity.InternalID, toFloat32(identity.Vector)))
	}

	x.graph = g
	x.version = snap.Version()
	x.built = true
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
