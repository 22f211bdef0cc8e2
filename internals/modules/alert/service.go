package alert

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"keepalive/internals/modules/prober"
	"keepalive/internals/modules/status"
	"keepalive/pkg/metrics"
)

const publishTimeout = 10 * time.Second

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// AlertService turns down and recovered transitions into events and hands
// them to a Publisher on a few worker goroutines. Alerts are best effort:
// when the queue is full the event is dropped.
type AlertService struct {
	// lifecycle
	workerCount int
	workerWG    sync.WaitGroup
	mu          sync.RWMutex
	closed      bool

	// channels
	alertChan chan Event

	publisher Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewAlertService(workerCount, channelSize int, publisher Publisher, m *metrics.Metrics, logger *zerolog.Logger) *AlertService {
	return &AlertService{
		workerCount: workerCount,
		alertChan:   make(chan Event, channelSize),
		publisher:   publisher,
		metrics:     m,
		logger:      logger.With().Str("component", "alert").Logger(),
	}
}

// Start starts the alert workers
func (s *AlertService) Start() {
	s.workerWG.Add(s.workerCount)

	for range s.workerCount {
		go s.handleAlerts()
	}
}

// Notify satisfies the scheduler's Notifier. It never blocks.
func (s *AlertService) Notify(res prober.Result, t status.Transition) {
	ev := Event{
		ID:         uuid.New(),
		UserID:     res.UserID,
		URL:        res.URL,
		ErrorKind:  string(res.ErrorKind),
		HTTPStatus: res.HTTPStatus,
		At:         res.Timestamp,
	}
	switch t {
	case status.TransitionDown:
		ev.Type = TypeURLDown
	case status.TransitionRecovered:
		ev.Type = TypeURLRecovered
	default:
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	select {
	case s.alertChan <- ev:
	default:
		s.metrics.AlertDropped()
		s.logger.Warn().Str("type", ev.Type).Str("url", ev.URL).Msg("alert queue full, dropping event")
	}
}

func (s *AlertService) handleAlerts() {
	defer s.workerWG.Done()

	for ev := range s.alertChan {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := s.publisher.Publish(ctx, ev)
		cancel()

		s.metrics.AlertPublished(ev.Type, err)
		if err != nil {
			s.logger.Error().Err(err).Str("type", ev.Type).Str("url", ev.URL).Msg("alert publish failed")
		}
	}
}

// Close stops accepting events and waits for queued ones to be published.
func (s *AlertService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.alertChan)
	s.mu.Unlock()

	s.workerWG.Wait()
}
