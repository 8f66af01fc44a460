package database

import (
	"time"
)

// StoredFace is one persisted sighting: a row of the faces table.
type StoredFace struct {
	ID        int64
	Timestamp time.Time
	Label     string
	Embedding []float64
	Image     []byte // JPEG of the cropped face
}

// FaceInput holds the caller-provided fields of a new sighting.
// ID and Timestamp are assigned by the store.
type FaceInput struct {
	Label     string
	Embedding []float64
	Image     []byte
}

// LabeledEmbedding is the part of a stored face needed to seed a gallery.
type LabeledEmbedding struct {
	ID        int64
	Label     string
	Embedding []float64
}

// FaceImage is the part of a stored face shown by the review tool.
type FaceImage struct {
	ID    int64
	Label string
	Image []byte
}

// LabelCount is the number of sightings stored for one label.
type LabelCount struct {
	Label     string
	Count     int
	FirstID   int64
	FirstSeen time.Time
	LastSeen  time.Time
}
