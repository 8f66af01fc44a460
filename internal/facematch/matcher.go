package facematch

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Matcher maps probe embeddings to labels.
//
// The gallery is scanned in insertion order and the first entry within Threshold wins,
// even when a later entry is closer. Galleries are expected to hold at most a few
// hundred entries; the scan is linear.
type Matcher struct {
	Threshold float64
}

// NewMatcher returns a matcher using the given euclidean distance threshold.
func NewMatcher(threshold float64) Matcher {
	return Matcher{Threshold: threshold}
}

// Match compares probe against every gallery entry. It never modifies the gallery:
// on a novel result the caller decides whether to Admit the probe.
func (m Matcher) Match(probe []float64, g *Gallery) Result {
	for i, e := range g.entries {
		d, ok := Distance(probe, e.Embedding)
		if ok && d <= m.Threshold {
			return Result{Label: e.Label, Index: i, Distance: d}
		}
	}
	return Result{Label: g.NextLabel(), Novel: true, Index: -1}
}

// Distance returns the euclidean distance between two embeddings.
// Returns false when the embeddings are empty or of different dimension.
func Distance(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1), false
	}
	return floats.Distance(a, b, 2), true
}
