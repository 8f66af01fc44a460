package database

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/facelog/internal/facematch"
)

// Neighbor is one search hit of the gallery index.
type Neighbor struct {
	ID       int64
	Label    string
	Distance float64 // exact euclidean distance
}

// GalleryIndex wraps an HNSW graph over stored fingerprints for nearest-sighting search.
// It is independent from the capture matcher, which always scans linearly.
type GalleryIndex struct {
	graph   *hnsw.Graph[int64]
	idToRow map[int64]*LabeledEmbedding
	dim     int
	mu      sync.RWMutex
}

// NewGalleryIndex creates a new empty index.
func NewGalleryIndex() *GalleryIndex {
	return &GalleryIndex{
		idToRow: make(map[int64]*LabeledEmbedding),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build builds the index from stored rows. Rows whose dimension differs from the
// first non-empty row are skipped; their count is returned.
func (h *GalleryIndex) Build(rows []LabeledEmbedding) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.graph = nil
	h.dim = 0
	h.idToRow = make(map[int64]*LabeledEmbedding, len(rows))

	skipped := 0
	for i := range rows {
		row := &rows[i]
		if len(row.Embedding) == 0 {
			skipped++
			continue
		}
		if h.graph == nil {
			h.graph = newGraph()
			h.dim = len(row.Embedding)
		}
		if len(row.Embedding) != h.dim {
			skipped++
			continue
		}
		h.graph.Add(hnsw.MakeNode(row.ID, Float32s(row.Embedding)))
		h.idToRow[row.ID] = row
	}

	return skipped
}

// Search finds the k nearest stored faces to query, closest first.
func (h *GalleryIndex) Search(query []float64, k int) ([]Neighbor, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil || len(h.idToRow) == 0 {
		return nil, errors.New("index not initialized")
	}
	if len(query) != h.dim {
		return nil, fmt.Errorf("%w: query has %d values, index has %d", ErrDimensionMismatch, len(query), h.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	nodes := h.graph.Search(Float32s(query), k)

	neighbors := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		row, ok := h.idToRow[n.Key]
		if !ok {
			continue
		}
		// Recompute in double precision; the graph works on float32 copies.
		d, _ := facematch.Distance(query, row.Embedding)
		neighbors = append(neighbors, Neighbor{ID: row.ID, Label: row.Label, Distance: d})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})
	return neighbors, nil
}

// Count returns the number of indexed faces.
func (h *GalleryIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idToRow)
}

// Dim returns the embedding dimension of the index, 0 when empty.
func (h *GalleryIndex) Dim() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dim
}
