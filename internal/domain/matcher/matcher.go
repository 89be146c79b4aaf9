// Package matcher finds the enrolled identity closest to a query vector.
package matcher

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/rollcall/internal/domain/gallery"
)

// Kinds accepted by New.
const (
	KindLinear = "linear"
	KindHNSW   = "hnsw"
)

// Outcome is the result of one matching attempt.
type Outcome struct {
	Matched    bool
	InternalID int64
	Distance   float64
}

// Unmatched is the zero Outcome.
var Unmatched = Outcome{}

// Matcher selects the nearest identity within threshold.
// Implementations must be safe for concurrent use.
type Matcher interface {
	Match(query []float64, snap *gallery.Snapshot, threshold float64) Outcome
}

// New returns the matcher registered under kind.
func New(kind string, opts ...IndexOption) (Matcher, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindLinear:
		return Linear{}, nil
	case KindHNSW:
		return NewIndexed(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Linear scans every identity. It is exact and O(n·d) per call.
type Linear struct{}

// Match returns the global minimum Euclidean distance identity when it is
// within threshold. Exact ties resolve to the first identity in snapshot order.
func (Linear) Match(query []float64, snap *gallery.Snapshot, threshold float64) Outcome {
	if !usableThreshold(threshold) || snap == nil || snap.Len() == 0 {
		return Unmatched
	}

	// Compare squared distances; an identity whose partial sum already
	// exceeds the current best is abandoned early.
	best := -1
	bestSq := math.Inf(1)
	for i := 0; i < snap.Len(); i++ {
		v := snap.At(i).Vector
		if len(v) != len(query) {
			return Unmatched
		}
		sq, ok := squaredDistanceBelow(query, v, bestSq)
		if ok && sq < bestSq {
			best, bestSq = i, sq
		}
	}
	if best < 0 {
		return Unmatched
	}

	d := math.Sqrt(bestSq)
	if d > threshold {
		return Unmatched
	}
	return Outcome{Matched: true, InternalID: snap.At(best).InternalID, Distance: d}
}

// EuclideanDistance between two vectors of equal length.
func EuclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// squaredDistanceBelow accumulates the squared distance and stops once it
// reaches limit, reporting false in that case.
func squaredDistanceBelow(a, b []float64, limit float64) (float64, bool) {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
		if sum >= limit {
			return sum, false
		}
	}
	return sum, true
}

func usableThreshold(t float64) bool {
	return t >= 0 && !math.IsNaN(t)
}
