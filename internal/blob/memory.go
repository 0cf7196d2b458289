package blob

import (
	"context"
	"sync"
	"time"
)

// Memory keeps blobs in process. Used in development and tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
	signer  *Signer
}

func NewMemory(signer *Signer) *Memory {
	return &Memory{objects: make(map[string][]byte), signer: signer}
}

func (m *Memory) Put(ctx context.Context, key string, data []byte, contentType string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.objects[key] = cp
	m.mu.Unlock()
	return Object{Key: key, URL: "memory://" + key, Size: int64(len(data))}, nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) URL(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	return m.signer.URL(key, filename, ttl)
}

// Len reports how many objects are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
