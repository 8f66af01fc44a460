package database

import (
	"context"
)

// FaceReader provides read-only access to stored sightings.
// All listings are ordered by ascending id.
type FaceReader interface {
	// LoadAll returns label and embedding of every stored face, for gallery seeding.
	// Returns an empty slice when the store is empty.
	LoadAll(ctx context.Context) ([]LabeledEmbedding, error)
	// ListImages returns id, label and image of every stored face.
	ListImages(ctx context.Context) ([]FaceImage, error)
	// ListImagesPage returns up to limit faces with id greater than afterID.
	ListImagesPage(ctx context.Context, afterID int64, limit int) ([]FaceImage, error)
	// Get retrieves a face by id, returns nil if not found
	Get(ctx context.Context, id int64) (*StoredFace, error)
	// Count returns the total number of faces stored
	Count(ctx context.Context) (int, error)
	// LabelCounts returns the number of sightings per label, ordered by first sighting.
	LabelCounts(ctx context.Context) ([]LabelCount, error)
	// VerifyTable returns ErrTableNotFound when the faces table does not exist.
	VerifyTable(ctx context.Context) error
}

// FaceWriter provides append access to the faces table.
// Records are never updated or deleted.
type FaceWriter interface {
	FaceReader

	// Initialize creates the faces table if it does not exist.
	Initialize(ctx context.Context) error
	// Append inserts a new face and returns its id. The store assigns id and timestamp.
	Append(ctx context.Context, face FaceInput) (int64, error)
}

// Store is an open gallery store.
type Store interface {
	FaceWriter
	Close() error
}
