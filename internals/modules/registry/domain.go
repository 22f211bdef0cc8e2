package registry

import (
	"context"
	"time"
)

type MonitoredURL struct {
	URL     string    `json:"url"`
	AddedAt time.Time `json:"added_at"`
}

// URLs flattens a set to its addresses, keeping order.
func URLs(set []MonitoredURL) []string {
	out := make([]string, 0, len(set))
	for _, m := range set {
		out = append(out, m.URL)
	}
	return out
}

func contains(set []MonitoredURL, url string) bool {
	for _, m := range set {
		if m.URL == url {
			return true
		}
	}
	return false
}

// Observer receives add and remove events in mutation order. It is called
// with the owning user's lock held, so it must not call back into the
// registry.
type Observer interface {
	URLAdded(userID, url string)
	URLRemoved(userID, url string)
}

// Store persists userID -> set of MonitoredURL. Implementations return
// *apperror.Error values; Insert reports DuplicateURL for an existing pair.
type Store interface {
	List(ctx context.Context, userID string) ([]MonitoredURL, error)
	Insert(ctx context.Context, userID string, m MonitoredURL) error
	Delete(ctx context.Context, userID, url string) (bool, error)
	DeleteUser(ctx context.Context, userID string) ([]MonitoredURL, error)
	All(ctx context.Context) (map[string][]MonitoredURL, error)
}
