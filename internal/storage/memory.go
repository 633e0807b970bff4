package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

type memoryObject struct {
	data        []byte
	contentType string
	modTime     time.Time
}

// MemoryStore keeps blobs in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	signer  *URLSigner
}

func NewMemoryStore(signer *URLSigner) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		signer:  signer,
	}
}

func (m *MemoryStore) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, contentType: contentType, modTime: time.Now()}
	return nil
}

func (m *MemoryStore) Open(_ context.Context, key string) (io.ReadCloser, *Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), &Object{
		Key:         key,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		ModTime:     obj.modTime,
	}, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) SignedURL(_ context.Context, key string, opts URLOptions) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return m.signer.URL(key, opts)
}

// Len reports how many objects are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
