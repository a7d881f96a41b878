// Package storagetest provides an in-memory storage.ObjectStore for tests.
package storagetest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/storage"
)

type object struct {
	data        []byte
	contentType string
}

type Memory struct {
	mu      sync.Mutex
	objects map[string]object
}

func NewMemory() *Memory {
	return &Memory{objects: map[string]object{}}
}

func (m *Memory) Upload(_ context.Context, key, localPath string) (storage.ObjectInfo, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("read %q: %w", localPath, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	obj := object{data: data, contentType: storage.ContentTypeFor(localPath)}
	m.objects[key] = obj
	return info(key, obj), nil
}

func (m *Memory) Download(_ context.Context, key, localPath string) (storage.ObjectInfo, error) {
	m.mu.Lock()
	obj, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return storage.ObjectInfo{}, err
	}
	if err := os.WriteFile(localPath, obj.data, 0o644); err != nil {
		return storage.ObjectInfo{}, err
	}
	return info(key, obj), nil
}

func (m *Memory) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return info(key, obj), nil
}

// Keys returns the stored keys in no particular order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	return keys
}

func info(key string, obj object) storage.ObjectInfo {
	return storage.ObjectInfo{Key: key, Size: int64(len(obj.data)), ContentType: obj.contentType}
}
