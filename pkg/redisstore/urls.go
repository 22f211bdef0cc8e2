package redisstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const usersKey string = "keepalive:users"

// URLEntry is one registered url and the unix-millis time it was added.
type URLEntry struct {
	URL     string
	AddedAt time.Time
}

func urlsKey(userID string) string {
	return fmt.Sprintf("keepalive:urls:%s", userID)
}

// ListURLs returns the user's urls ordered by the time they were added.
func (c *Client) ListURLs(ctx context.Context, userID string) ([]URLEntry, error) {
	var raw map[string]string

	err := retry(ctx, 2, func() error {
		var err error
		raw, err = c.rdb.HGetAll(ctx, urlsKey(userID)).Result()
		return err
	})
	if err != nil {
		return nil, err
	}

	return toEntries(raw), nil
}

// InsertURL adds url to the user's hash. It reports false when the url was
// already present.
func (c *Client) InsertURL(ctx context.Context, userID string, e URLEntry) (bool, error) {
	var setCmd *redis.BoolCmd

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		setCmd = pipe.HSetNX(ctx, urlsKey(userID), e.URL, e.AddedAt.UnixMilli())
		pipe.SAdd(ctx, usersKey, userID)
		return nil
	})
	if err != nil {
		return false, err
	}

	return setCmd.Val(), nil
}

// DeleteURL removes url from the user's hash and reports whether it existed.
func (c *Client) DeleteURL(ctx context.Context, userID, url string) (bool, error) {
	n, err := c.rdb.HDel(ctx, urlsKey(userID), url).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteUserURLs drops every url the user owns and returns what was removed.
func (c *Client) DeleteUserURLs(ctx context.Context, userID string) ([]URLEntry, error) {
	key := urlsKey(userID)
	var getCmd *redis.MapStringStringCmd

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.HGetAll(ctx, key)
		pipe.Del(ctx, key)
		pipe.SRem(ctx, usersKey, userID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toEntries(getCmd.Val()), nil
}

// AllURLs walks the user index and returns every user's urls.
func (c *Client) AllURLs(ctx context.Context) (map[string][]URLEntry, error) {
	var users []string

	err := retry(ctx, 3, func() error {
		var err error
		users, err = c.rdb.SMembers(ctx, usersKey).Result()
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return map[string][]URLEntry{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(users))
	_, err = c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, u := range users {
			cmds[i] = pipe.HGetAll(ctx, urlsKey(u))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string][]URLEntry, len(users))
	for i, u := range users {
		entries := toEntries(cmds[i].Val())
		if len(entries) > 0 {
			out[u] = entries
		}
	}
	return out, nil
}

func toEntries(raw map[string]string) []URLEntry {
	entries := make([]URLEntry, 0, len(raw))
	for url, ms := range raw {
		millis, _ := strconv.ParseInt(ms, 10, 64)
		entries = append(entries, URLEntry{URL: url, AddedAt: time.UnixMilli(millis)})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AddedAt.Equal(entries[j].AddedAt) {
			return entries[i].URL < entries[j].URL
		}
		return entries[i].AddedAt.Before(entries[j].AddedAt)
	})
	return entries
}
