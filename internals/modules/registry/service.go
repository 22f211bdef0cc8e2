package registry

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"keepalive/pkg/apperror"
)

type nopObserver struct{}

func (nopObserver) URLAdded(string, string)   {}
func (nopObserver) URLRemoved(string, string) {}

type Service struct {
	store     Store
	policy    *Policy
	observer  Observer
	locks     *userLocks
	opTimeout time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

func NewService(store Store, policy *Policy, opTimeout time.Duration, log *zerolog.Logger) *Service {
	return &Service{
		store:     store,
		policy:    policy,
		observer:  nopObserver{},
		locks:     newUserLocks(),
		opTimeout: opTimeout,
		now:       time.Now,
		log:       log.With().Str("component", "registry").Logger(),
	}
}

// SetObserver installs the receiver of add and remove events. Call it
// before the service handles traffic.
func (s *Service) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	s.observer = o
}

func (s *Service) AddURL(ctx context.Context, userID, raw string) ([]MonitoredURL, error) {
	const op = "service.registry.add_url"

	url := Normalize(raw)
	if err := s.policy.Validate(url); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	current, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, s.storeError(op, err)
	}

	if contains(current, url) {
		return nil, apperror.Newf(apperror.DuplicateURL, op, "url already registered: %s", url)
	}
	if len(current) >= s.policy.MaxPerUser {
		return nil, apperror.Newf(apperror.QuotaExceeded, op, "limit reached (max %d urls)", s.policy.MaxPerUser)
	}

	entry := MonitoredURL{URL: url, AddedAt: s.now().UTC()}
	if err := s.store.Insert(ctx, userID, entry); err != nil {
		return nil, s.storeError(op, err)
	}

	s.observer.URLAdded(userID, url)
	s.log.Info().Str("user_id", userID).Str("url", url).Msg("url registered")

	return append(current, entry), nil
}

func (s *Service) RemoveURL(ctx context.Context, userID, raw string) ([]MonitoredURL, error) {
	const op = "service.registry.remove_url"

	url := Normalize(raw)
	if url == "" {
		return nil, apperror.Newf(apperror.InvalidInput, op, "url is required")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	current, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, s.storeError(op, err)
	}
	if !contains(current, url) {
		return nil, apperror.Newf(apperror.NotFound, op, "url not registered: %s", url)
	}

	deleted, err := s.store.Delete(ctx, userID, url)
	if err != nil {
		return nil, s.storeError(op, err)
	}
	if !deleted {
		return nil, apperror.Newf(apperror.NotFound, op, "url not registered: %s", url)
	}

	s.observer.URLRemoved(userID, url)
	s.log.Info().Str("user_id", userID).Str("url", url).Msg("url removed")

	remaining := make([]MonitoredURL, 0, len(current)-1)
	for _, m := range current {
		if m.URL != url {
			remaining = append(remaining, m)
		}
	}
	return remaining, nil
}

func (s *Service) ListURLs(ctx context.Context, userID string) ([]MonitoredURL, error) {
	const op = "service.registry.list_urls"

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	set, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, s.storeError(op, err)
	}
	return set, nil
}

// RemoveUser deletes every url the user owns and emits a remove event for
// each one. It returns how many urls were dropped.
func (s *Service) RemoveUser(ctx context.Context, userID string) (int, error) {
	const op = "service.registry.remove_user"

	unlock := s.locks.Lock(userID)
	defer unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	removed, err := s.store.DeleteUser(ctx, userID)
	if err != nil {
		return 0, s.storeError(op, err)
	}

	for _, m := range removed {
		s.observer.URLRemoved(userID, m.URL)
	}

	s.log.Info().Str("user_id", userID).Int("removed", len(removed)).Msg("user urls removed")
	return len(removed), nil
}

// Snapshot returns every user's urls. Used to rebuild the schedule on start.
func (s *Service) Snapshot(ctx context.Context) (map[string][]MonitoredURL, error) {
	const op = "service.registry.snapshot"

	all, err := s.store.All(ctx)
	if err != nil {
		return nil, s.storeError(op, err)
	}
	return all, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *Service) storeError(op string, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	s.log.Error().Err(err).Str("op", op).Msg("registry store failure")
	return apperror.New(apperror.Internal, op, err).WithMessage("internal server error")
}
