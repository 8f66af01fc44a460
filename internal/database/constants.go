package database

// HNSW index parameters for the similar-sighting search
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 100
)

// DefaultPageSize is the number of rows fetched per page when listing images.
const DefaultPageSize = 500
