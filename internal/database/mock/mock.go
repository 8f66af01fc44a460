// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/facelog/internal/database"
)

// MockFaceStore is an in-memory implementation of database.Store
type MockFaceStore struct {
	mu    sync.RWMutex
	faces []database.StoredFace
	next  int64
	now   func() time.Time

	Initialized bool
	Closed      bool

	// Error injection
	InitializeError  error
	AppendError      error
	LoadAllError     error
	ListImagesError  error
	GetError         error
	CountError       error
	LabelCountsError error
	VerifyError      error
}

var _ database.Store = (*MockFaceStore)(nil)

// NewMockFaceStore creates a new empty mock store
func NewMockFaceStore() *MockFaceStore {
	return &MockFaceStore{next: 1, now: time.Now}
}

// SetClock replaces the clock used to stamp appended faces
func (m *MockFaceStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// AddFace seeds the store with a face, assigning id and timestamp when unset
func (m *MockFaceStore) AddFace(face database.StoredFace) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if face.ID == 0 {
		face.ID = m.next
	}
	if face.ID >= m.next {
		m.next = face.ID + 1
	}
	if face.Timestamp.IsZero() {
		face.Timestamp = m.now()
	}
	m.faces = append(m.faces, face)
	slices.SortFunc(m.faces, func(a, b database.StoredFace) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return face.ID
}

// Faces returns a copy of every stored face in id order
func (m *MockFaceStore) Faces() []database.StoredFace {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.faces)
}

// Initialize marks the store as initialized
func (m *MockFaceStore) Initialize(ctx context.Context) error {
	if m.InitializeError != nil {
		return m.InitializeError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Initialized = true
	return nil
}

// Append stores a face
func (m *MockFaceStore) Append(ctx context.Context, face database.FaceInput) (int64, error) {
	if m.AppendError != nil {
		return 0, m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(face.Embedding) == 0 {
		return 0, database.NewStorageError("append", fmt.Errorf("%w: empty embedding", database.ErrDimensionMismatch))
	}
	if len(m.faces) > 0 && len(m.faces[0].Embedding) != len(face.Embedding) {
		return 0, database.NewStorageError("append", database.ErrDimensionMismatch)
	}

	id := m.next
	m.next++
	m.faces = append(m.faces, database.StoredFace{
		ID:        id,
		Timestamp: m.now(),
		Label:     face.Label,
		Embedding: slices.Clone(face.Embedding),
		Image:     slices.Clone(face.Image),
	})
	return id, nil
}

// LoadAll returns all labels and embeddings
func (m *MockFaceStore) LoadAll(ctx context.Context) ([]database.LabeledEmbedding, error) {
	if m.LoadAllError != nil {
		return nil, m.LoadAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]database.LabeledEmbedding, 0, len(m.faces))
	for _, f := range m.faces {
		result = append(result, database.LabeledEmbedding{ID: f.ID, Label: f.Label, Embedding: f.Embedding})
	}
	return result, nil
}

// VerifyTable returns VerifyError
func (m *MockFaceStore) VerifyTable(ctx context.Context) error {
	return m.VerifyError
}

// ListImages returns all images
func (m *MockFaceStore) ListImages(ctx context.Context) ([]database.FaceImage, error) {
	return m.ListImagesPage(ctx, 0, len(m.Faces())+1)
}

// ListImagesPage returns up to limit images after afterID
func (m *MockFaceStore) ListImagesPage(ctx context.Context, afterID int64, limit int) ([]database.FaceImage, error) {
	if m.ListImagesError != nil {
		return nil, m.ListImagesError
	}
	if limit <= 0 {
		limit = database.DefaultPageSize
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []database.FaceImage{}
	for _, f := range m.faces {
		if f.ID <= afterID {
			continue
		}
		result = append(result, database.FaceImage{ID: f.ID, Label: f.Label, Image: f.Image})
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// Get retrieves a face by id
func (m *MockFaceStore) Get(ctx context.Context, id int64) (*database.StoredFace, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.faces {
		if f.ID == id {
			face := f
			return &face, nil
		}
	}
	return nil, nil
}

// Count returns the number of faces
func (m *MockFaceStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.faces), nil
}

// LabelCounts groups faces by label in order of first sighting
func (m *MockFaceStore) LabelCounts(ctx context.Context) ([]database.LabelCount, error) {
	if m.LabelCountsError != nil {
		return nil, m.LabelCountsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	index := make(map[string]int)
	result := []database.LabelCount{}
	for _, f := range m.faces {
		i, ok := index[f.Label]
		if !ok {
			index[f.Label] = len(result)
			result = append(result, database.LabelCount{
				Label:     f.Label,
				FirstID:   f.ID,
				FirstSeen: f.Timestamp,
				LastSeen:  f.Timestamp,
			})
			i = len(result) - 1
		}
		result[i].Count++
		if f.Timestamp.Before(result[i].FirstSeen) {
			result[i].FirstSeen = f.Timestamp
		}
		if f.Timestamp.After(result[i].LastSeen) {
			result[i].LastSeen = f.Timestamp
		}
	}
	return result, nil
}

// Close marks the store as closed
func (m *MockFaceStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
