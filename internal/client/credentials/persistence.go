package credentials

import (
	"context"
	"maps"
	"sync"
)

const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// recordKeys lists the entries owned by the credential record.
var recordKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// Persistence is the durable key/value storage behind a Store. Save and
// Delete must apply all given keys atomically. Load may return keys the
// Store does not own; they are ignored.
type Persistence interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, entries map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// MemoryPersistence keeps entries in a map. The zero value is not usable;
// call NewMemoryPersistence.
type MemoryPersistence struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{entries: make(map[string]string)}
}

func (m *MemoryPersistence) Load(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.entries), nil
}

func (m *MemoryPersistence) Save(ctx context.Context, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.entries, entries)
	return nil
}

func (m *MemoryPersistence) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}
