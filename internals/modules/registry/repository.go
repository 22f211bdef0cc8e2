package registry

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"keepalive/pkg/utils"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	listURLs = `SELECT url, added_at FROM monitored_urls
WHERE user_id = $1
ORDER BY added_at, url`

	insertURL = `INSERT INTO monitored_urls (user_id, url, added_at)
VALUES ($1, $2, $3)`

	deleteURL = `DELETE FROM monitored_urls
WHERE user_id = $1 AND url = $2`

	deleteUserURLs = `DELETE FROM monitored_urls
WHERE user_id = $1
RETURNING url, added_at`

	allURLs = `SELECT user_id, url, added_at FROM monitored_urls
ORDER BY user_id, added_at, url`
)

type urlRow struct {
	UserID  string             `db:"user_id"`
	URL     string             `db:"url"`
	AddedAt pgtype.Timestamptz `db:"added_at"`
}

func (r urlRow) toDomain() MonitoredURL {
	return MonitoredURL{URL: r.URL, AddedAt: utils.FromPgTimestamptz(r.AddedAt)}
}

// Repository is the postgres Store.
type Repository struct {
	db  DBTX
	log *zerolog.Logger
}

func NewRepository(dbExecutor DBTX, log *zerolog.Logger) *Repository {
	return &Repository{
		db:  dbExecutor,
		log: log,
	}
}

func (r *Repository) List(ctx context.Context, userID string) ([]MonitoredURL, error) {
	const op = "repo.registry.list"

	rows, err := r.db.Query(ctx, listURLs, userID)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.log)
	}

	collected, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[urlRow])
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.log)
	}

	set := make([]MonitoredURL, 0, len(collected))
	for i := range collected {
		set = append(set, collected[i].toDomain())
	}
	return set, nil
}

func (r *Repository) Insert(ctx context.Context, userID string, m MonitoredURL) error {
	const op = "repo.registry.insert"

	_, err := r.db.Exec(ctx, insertURL, userID, m.URL, utils.ToPgTimestamptz(m.AddedAt))
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.log)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID, url string) (bool, error) {
	const op = "repo.registry.delete"

	tag, err := r.db.Exec(ctx, deleteURL, userID, url)
	if err != nil {
		return false, utils.WrapRepoError(op, err, false, r.log)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) DeleteUser(ctx context.Context, userID string) ([]MonitoredURL, error) {
	const op = "repo.registry.delete_user"

	rows, err := r.db.Query(ctx, deleteUserURLs, userID)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.log)
	}

	collected, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[urlRow])
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.log)
	}

	removed := make([]MonitoredURL, 0, len(collected))
	for i := range collected {
		removed = append(removed, collected[i].toDomain())
	}
	return removed, nil
}

func (r *Repository) All(ctx context.Context) (map[string][]MonitoredURL, error) {
	const op = "repo.registry.all"

	rows, err := r.db.Query(ctx, allURLs)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.log)
	}

	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[urlRow])
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.log)
	}

	out := make(map[string][]MonitoredURL)
	for i := range collected {
		row := &collected[i]
		out[row.UserID] = append(out[row.UserID], row.toDomain())
	}
	return out, nil
}
