package registry

import (
	"context"

	"keepalive/pkg/apperror"
	"keepalive/pkg/redisstore"
)

// RedisStore adapts the redis client to Store.
type RedisStore struct {
	client *redisstore.Client
}

func NewRedisStore(client *redisstore.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) List(ctx context.Context, userID string) ([]MonitoredURL, error) {
	entries, err := s.client.ListURLs(ctx, userID)
	if err != nil {
		return nil, redisError("repo.redis.list", err)
	}
	return fromEntries(entries), nil
}

func (s *RedisStore) Insert(ctx context.Context, userID string, m MonitoredURL) error {
	const op = "repo.redis.insert"

	created, err := s.client.InsertURL(ctx, userID, redisstore.URLEntry{URL: m.URL, AddedAt: m.AddedAt})
	if err != nil {
		return redisError(op, err)
	}
	if !created {
		return apperror.Newf(apperror.DuplicateURL, op, "url already registered: %s", m.URL)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID, url string) (bool, error) {
	deleted, err := s.client.DeleteURL(ctx, userID, url)
	if err != nil {
		return false, redisError("repo.redis.delete", err)
	}
	return deleted, nil
}

func (s *RedisStore) DeleteUser(ctx context.Context, userID string) ([]MonitoredURL, error) {
	entries, err := s.client.DeleteUserURLs(ctx, userID)
	if err != nil {
		return nil, redisError("repo.redis.delete_user", err)
	}
	return fromEntries(entries), nil
}

func (s *RedisStore) All(ctx context.Context) (map[string][]MonitoredURL, error) {
	all, err := s.client.AllURLs(ctx)
	if err != nil {
		return nil, redisError("repo.redis.all", err)
	}

	out := make(map[string][]MonitoredURL, len(all))
	for user, entries := range all {
		out[user] = fromEntries(entries)
	}
	return out, nil
}

func fromEntries(entries []redisstore.URLEntry) []MonitoredURL {
	set := make([]MonitoredURL, 0, len(entries))
	for _, e := range entries {
		set = append(set, MonitoredURL{URL: e.URL, AddedAt: e.AddedAt.UTC()})
	}
	return set
}

func redisError(op string, err error) error {
	return apperror.New(apperror.Dependency, op, err).WithMessage("registry store unavailable")
}
