package scheduler

import (
	"container/heap"
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"keepalive/config"
	"keepalive/internals/modules/prober"
	"keepalive/internals/modules/registry"
	"keepalive/internals/modules/status"
	"keepalive/pkg/apperror"
	"keepalive/pkg/metrics"
)

type Prober interface {
	Probe(ctx context.Context, url string) prober.Result
}

type Recorder interface {
	Record(res prober.Result) status.Transition
	Forget(userID, url string)
}

// Notifier receives down and recovered transitions. It must not block.
type Notifier interface {
	Notify(res prober.Result, t status.Transition)
}

type Source interface {
	Snapshot(ctx context.Context) (map[string][]registry.MonitoredURL, error)
}

type job struct {
	key        Key
	generation uint64
}

// Scheduler fires one probe per registered url on a recurring schedule.
// A single dispatcher pops due entries off a min-heap and hands them to a
// fixed pool of workers through a bounded queue.
type Scheduler struct {
	cfg      config.SchedulerConfig
	prober   Prober
	recorder Recorder
	notifier Notifier
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[Key]*entry
	queue   entryHeap
	nextGen uint64

	wake chan struct{}
	jobs chan job
}

func New(
	cfg config.SchedulerConfig,
	p Prober,
	recorder Recorder,
	notifier Notifier,
	m *metrics.Metrics,
	log *zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		prober:   p,
		recorder: recorder,
		notifier: notifier,
		metrics:  m,
		log:      log.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
		entries:  make(map[Key]*entry),
		wake:     make(chan struct{}, 1),
		jobs:     make(chan job, cfg.QueueSize),
	}
}

// URLAdded arms a new entry. It satisfies registry.Observer.
func (s *Scheduler) URLAdded(userID, url string) {
	s.Add(Key{UserID: userID, URL: url})
}

// URLRemoved cancels the entry. It satisfies registry.Observer.
func (s *Scheduler) URLRemoved(userID, url string) {
	s.Remove(Key{UserID: userID, URL: url})
}

// Add creates an entry with a fresh generation and a jittered first fire.
// An existing entry for the same key is replaced.
func (s *Scheduler) Add(k Key) {
	s.mu.Lock()
	s.addLocked(k)
	n := len(s.entries)
	s.mu.Unlock()

	s.metrics.SetEntries(n)
	s.signal()
}

func (s *Scheduler) addLocked(k Key) {
	if old, ok := s.entries[k]; ok {
		s.cancelLocked(old)
	}

	s.nextGen++
	e := &entry{
		key:        k,
		generation: s.nextGen,
		state:      StateIdle,
		interval:   s.cfg.BaseInterval,
		index:      -1,
	}
	s.entries[k] = e

	s.armLocked(e, s.jitter())
}

// Remove cancels the entry and drops its history. A probe already in
// flight finishes but its result is discarded.
func (s *Scheduler) Remove(k Key) {
	s.mu.Lock()
	e, ok := s.entries[k]
	if ok {
		s.cancelLocked(e)
		delete(s.entries, k)
		s.recorder.Forget(k.UserID, k.URL)
	}
	n := len(s.entries)
	s.mu.Unlock()

	if ok {
		s.metrics.SetEntries(n)
		s.signal()
	}
}

func (s *Scheduler) cancelLocked(e *entry) {
	if e.index >= 0 {
		heap.Remove(&s.queue, e.index)
	}
	e.state = StateCancelled
}

func (s *Scheduler) armLocked(e *entry, delay time.Duration) {
	e.nextFireAt = s.now().Add(delay)
	e.state = StateArmed
	heap.Push(&s.queue, e)
}

// Load arms an entry for every url in the source. Used once on start.
func (s *Scheduler) Load(ctx context.Context, src Source) error {
	const op = "service.scheduler.load"

	all, err := src.Snapshot(ctx)
	if err != nil {
		return apperror.New(apperror.SchedulerFault, op, err)
	}

	s.mu.Lock()
	count := 0
	for userID, set := range all {
		for _, m := range set {
			s.addLocked(Key{UserID: userID, URL: m.URL})
			count++
		}
	}
	n := len(s.entries)
	s.mu.Unlock()

	s.metrics.SetEntries(n)
	s.signal()

	s.log.Info().Int("users", len(all)).Int("entries", count).Msg("schedule rebuilt from registry")
	return nil
}

// Entry returns a copy of the entry for k.
func (s *Scheduler) Entry(userID, url string) (EntryInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[Key{UserID: userID, URL: url}]
	if !ok {
		return EntryInfo{}, false
	}
	return e.info(), true
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run starts the workers and the dispatcher and blocks until ctx is done
// and every worker has returned.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for range s.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.work(ctx)
		}()
	}

	s.log.Info().Int("workers", s.cfg.Workers).Int("queue_size", s.cfg.QueueSize).Msg("scheduler started")

	s.dispatch(ctx)

	close(s.jobs)
	wg.Wait()

	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) dispatch(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		wait := s.dispatchDue()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if wait >= 0 {
			timer.Reset(wait)
		}

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-timer.C:
		}
	}
}

// dispatchDue hands every due entry to the workers and returns the wait
// until the next one, or -1 when nothing is scheduled.
func (s *Scheduler) dispatchDue() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	saturated := 0

	for s.queue.Len() > 0 {
		e := s.queue[0]
		if e.nextFireAt.After(now) {
			break
		}

		select {
		case s.jobs <- job{key: e.key, generation: e.generation}:
			heap.Pop(&s.queue)
			e.state = StateProbing
		default:
			// queue full: push the entry back instead of dropping it
			e.nextFireAt = now.Add(s.cfg.SaturationDelay)
			heap.Fix(&s.queue, e.index)
			saturated++
			s.metrics.Saturated()
		}
	}

	if saturated > 0 {
		err := apperror.Newf(apperror.SchedulerFault, "service.scheduler.dispatch", "worker queue full")
		s.log.Warn().Err(err).
			Int("delayed", saturated).
			Dur("delay", s.cfg.SaturationDelay).
			Msg("scheduler saturated, delaying due entries")
	}

	if s.queue.Len() == 0 {
		return -1
	}
	return max(s.queue[0].nextFireAt.Sub(now), 0)
}

func (s *Scheduler) work(ctx context.Context) {
	for j := range s.jobs {
		if ctx.Err() != nil {
			continue
		}

		s.metrics.ProbeStarted()
		res := s.prober.Probe(ctx, j.key.URL)
		s.metrics.ProbeFinished()

		res.UserID = j.key.UserID
		s.complete(ctx, j, res)
	}
}

// complete records res only if the entry that fired it is still current.
func (s *Scheduler) complete(ctx context.Context, j job, res prober.Result) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	e, ok := s.entries[j.key]
	if !ok || e.generation != j.generation || e.state != StateProbing {
		s.mu.Unlock()
		s.log.Debug().
			Str("user_id", j.key.UserID).
			Str("url", j.key.URL).
			Uint64("generation", j.generation).
			Msg("discarding result of cancelled entry")
		return
	}

	transition := s.recorder.Record(res)

	if res.Success {
		e.consecutiveFailures = 0
	} else {
		e.consecutiveFailures++
	}
	e.interval = nextInterval(s.cfg.BaseInterval, s.cfg.RetryInterval, s.cfg.MaxBackoff, e.consecutiveFailures)
	s.armLocked(e, e.interval)
	s.mu.Unlock()

	s.signal()

	if transition != status.TransitionNone && s.notifier != nil {
		s.notifier.Notify(res, transition)
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) jitter() time.Duration {
	if s.cfg.InitialJitter <= 0 {
		return 0
	}
	return rand.N(s.cfg.InitialJitter)
}
