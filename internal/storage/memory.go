package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// MemoryBaseURL prefixes URLs issued by MemoryImageStore.
const MemoryBaseURL = "memory://images"

// ErrImageNotFound is returned when deleting an unknown image.
var ErrImageNotFound = errors.New("image not found")

// MemoryImageStore is the in-process image provider used without a bucket.
type MemoryImageStore struct {
	mu     sync.RWMutex
	images map[string]*Image
}

// NewMemoryImageStore returns an empty store.
func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{images: make(map[string]*Image)}
}

func (m *MemoryImageStore) Upload(ctx context.Context, data string) (string, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return "", err
	}
	id := uuid.NewString() + img.Extension

	m.mu.Lock()
	m.images[id] = img
	m.mu.Unlock()
	return MemoryBaseURL + "/" + id, nil
}

func (m *MemoryImageStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[id]; !ok {
		return ErrImageNotFound
	}
	delete(m.images, id)
	return nil
}

func (m *MemoryImageStore) IDFromURL(url string) (string, bool) {
	return idFromURL(MemoryBaseURL, url)
}

// Len reports how many images are stored.
func (m *MemoryImageStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.images)
}
