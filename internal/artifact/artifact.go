// Package artifact stores generated content blobs: per-revision section
// snapshots referenced from section history, and assembled report documents.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested object does not exist.
var ErrNotFound = errors.New("artifact not found")

// Store persists opaque blobs under string keys.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// SnapshotKey builds a unique object key for a section content snapshot.
// Every generation attempt gets its own key; snapshots are immutable.
func SnapshotKey(sessionID, sectionID string) string {
	return fmt.Sprintf("sessions/%s/sections/%s/%s.md", sessionID, sectionID, uuid.New().String())
}

// DocumentKey builds a unique object key for an assembled report document.
func DocumentKey(sessionID, ext string) string {
	return fmt.Sprintf("sessions/%s/report-%s.%s", sessionID, uuid.New().String(), ext)
}

type memoryObject struct {
	data        []byte
	contentType string
}

// Memory is an in-process Store for tests and single-node deployments.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemory creates an empty in-process artifact store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memoryObject)}
}

// Put stores the blob under the key.
func (m *Memory) Put(_ context.Context, key string, data []byte, contentType string) error {
	stored := make([]byte, len(data))
	copy(stored, data)
	m.mu.Lock()
	m.objects[key] = memoryObject{data: stored, contentType: contentType}
	m.mu.Unlock()
	return nil
}

// Get returns the blob and its content type, or ErrNotFound.
func (m *Memory) Get(_ context.Context, key string) ([]byte, string, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return out, obj.contentType, nil
}

// Remove deletes the object; removing a missing key is not an error.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}
