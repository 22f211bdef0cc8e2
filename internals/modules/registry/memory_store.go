package registry

import (
	"context"
	"sync"

	"keepalive/pkg/apperror"
)

// MemoryStore keeps the registry in process memory. Contents are lost on
// restart.
type MemoryStore struct {
	mu   sync.RWMutex
	urls map[string][]MonitoredURL
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{urls: make(map[string][]MonitoredURL)}
}

func (m *MemoryStore) List(_ context.Context, userID string) ([]MonitoredURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return cloneSet(m.urls[userID]), nil
}

func (m *MemoryStore) Insert(_ context.Context, userID string, u MonitoredURL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if contains(m.urls[userID], u.URL) {
		return apperror.Newf(apperror.DuplicateURL, "repo.memory.insert", "url already registered: %s", u.URL)
	}
	m.urls[userID] = append(m.urls[userID], u)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.urls[userID]
	for i, u := range set {
		if u.URL != url {
			continue
		}
		next := make([]MonitoredURL, 0, len(set)-1)
		next = append(next, set[:i]...)
		next = append(next, set[i+1:]...)
		if len(next) == 0 {
			delete(m.urls, userID)
		} else {
			m.urls[userID] = next
		}
		return true, nil
	}
	return false, nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, userID string) ([]MonitoredURL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := m.urls[userID]
	delete(m.urls, userID)
	return removed, nil
}

func (m *MemoryStore) All(_ context.Context) (map[string][]MonitoredURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]MonitoredURL, len(m.urls))
	for user, set := range m.urls {
		out[user] = cloneSet(set)
	}
	return out, nil
}

func cloneSet(set []MonitoredURL) []MonitoredURL {
	out := make([]MonitoredURL, len(set))
	copy(out, set)
	return out
}
