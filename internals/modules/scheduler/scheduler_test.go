package scheduler_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"keepalive/config"
	"keepalive/internals/modules/prober"
	"keepalive/internals/modules/registry"
	"keepalive/internals/modules/scheduler"
	"keepalive/internals/modules/status"
	"keepalive/pkg/metrics"
)

// fakeProber answers from outcome and optionally parks every probe until
// the gate is closed.
type fakeProber struct {
	mu      sync.Mutex
	calls   map[string]int
	outcome func(url string, n int) bool
	gate    chan struct{}
	started chan string
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		calls:   make(map[string]int),
		outcome: func(string, int) bool { return true },
		started: make(chan string, 100),
	}
}

func (f *fakeProber) Probe(ctx context.Context, url string) prober.Result {
	f.mu.Lock()
	f.calls[url]++
	n := f.calls[url]
	gate := f.gate
	f.mu.Unlock()

	select {
	case f.started <- url:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}

	ok := f.outcome(url, n)
	res := prober.Result{URL: url, Timestamp: time.Now(), Success: ok}
	if !ok {
		res.ErrorKind = prober.ErrTimeout
	}
	return res
}

func (f *fakeProber) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

type fakeNotifier struct {
	mu          sync.Mutex
	transitions []status.Transition
}

func (n *fakeNotifier) Notify(_ prober.Result, t status.Transition) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transitions = append(n.transitions, t)
}

func (n *fakeNotifier) Transitions() []status.Transition {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]status.Transition(nil), n.transitions...)
}

const (
	user = "alice@example.com"
	urlA = "https://a.onrender.com"
	urlB = "https://b.vercel.app"
	urlC = "https://c.cyclic.app"
)

var _ = Describe("Scheduler", func() {
	var (
		cfg      config.SchedulerConfig
		fp       *fakeProber
		agg      *status.Aggregator
		notifier *fakeNotifier
		m        *metrics.Metrics
		sched    *scheduler.Scheduler
		cancel   context.CancelFunc
		done     chan struct{}
	)

	BeforeEach(func() {
		cfg = config.SchedulerConfig{
			BaseInterval:    time.Hour,
			RetryInterval:   5 * time.Millisecond,
			MaxBackoff:      20 * time.Millisecond,
			InitialJitter:   0,
			SaturationDelay: 20 * time.Millisecond,
			Workers:         4,
			QueueSize:       16,
		}
		fp = newFakeProber()
		agg = status.NewAggregator(10)
		notifier = &fakeNotifier{}
		m = metrics.New(prometheus.NewRegistry())
	})

	start := func() {
		log := zerolog.Nop()
		sched = scheduler.New(cfg, fp, agg, notifier, m, &log)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan struct{})
		go func() {
			defer close(done)
			sched.Run(ctx)
		}()
	}

	AfterEach(func() {
		if fp.gate != nil {
			select {
			case <-fp.gate:
			default:
				close(fp.gate)
			}
		}
		cancel()
		Eventually(done).Should(BeClosed())
	})

	It("should probe a new url and re-arm it at the base interval", func() {
		start()
		sched.Add(scheduler.Key{UserID: user, URL: urlA})

		Eventually(func() int { return fp.Calls(urlA) }).Should(Equal(1))
		Eventually(func() scheduler.State {
			info, _ := sched.Entry(user, urlA)
			return info.State
		}).Should(Equal(scheduler.StateArmed))

		info, ok := sched.Entry(user, urlA)
		Expect(ok).To(BeTrue())
		Expect(info.Interval).To(Equal(time.Hour))
		Expect(info.NextFireAt).To(BeTemporally("~", time.Now().Add(time.Hour), time.Second))
		Expect(agg.StatusFor(user, []string{urlA}).Status).To(Equal(status.StatusAlive))

		Consistently(func() int { return fp.Calls(urlA) }, 100*time.Millisecond).Should(Equal(1))
	})

	It("should keep probing at the base cadence", func() {
		cfg.BaseInterval = 10 * time.Millisecond
		cfg.MaxBackoff = 10 * time.Millisecond
		start()
		sched.Add(scheduler.Key{UserID: user, URL: urlA})

		Eventually(func() int { return fp.Calls(urlA) }).Should(BeNumerically(">=", 4))
	})

	It("should back off exponentially while a url keeps failing", func() {
		fp.outcome = func(string, int) bool { return false }
		start()
		sched.Add(scheduler.Key{UserID: user, URL: urlA})

		Eventually(func() int {
			info, _ := sched.Entry(user, urlA)
			return info.ConsecutiveFailures
		}).Should(BeNumerically(">=", 4))

		info, _ := sched.Entry(user, urlA)
		Expect(info.Interval).To(Equal(20 * time.Millisecond))
		Expect(agg.StatusFor(user, []string{urlA}).Status).To(Equal(status.StatusFailed))
	})

	It("should return to the base interval after a success", func() {
		fp.outcome = func(_ string, n int) bool { return n >= 3 }
		start()
		sched.Add(scheduler.Key{UserID: user, URL: urlA})

		Eventually(func() int { return fp.Calls(urlA) }).Should(Equal(3))
		Eventually(func() time.Duration {
			info, _ := sched.Entry(user, urlA)
			return info.Interval
		}).Should(Equal(time.Hour))

		Eventually(notifier.Transitions).Should(Equal([]status.Transition{status.TransitionDown, status.TransitionRecovered}))
	})

	It("should discard the result of a probe in flight when the url is removed", func() {
		fp.gate = make(chan struct{})
		start()
		sched.Add(scheduler.Key{UserID: user, URL: urlA})
		Eventually(fp.started).Should(Receive(Equal(urlA)))

		sched.Remove(scheduler.Key{UserID: user, URL: urlA})
		close(fp.gate)

		Consistently(func() []prober.Result { return agg.History(user, urlA) }, 100*time.Millisecond).Should(BeEmpty())
		Expect(fp.Calls(urlA)).To(Equal(1))
		_, ok := sched.Entry(user, urlA)
		Expect(ok).To(BeFalse())
		Expect(sched.Len()).To(BeZero())
	})

	It("should discard a stale result after the url is removed and re-added", func() {
		fp.gate = make(chan struct{})
		cfg.InitialJitter = 0
		start()

		sched.Add(scheduler.Key{UserID: user, URL: urlA})
		Eventually(fp.started).Should(Receive())
		first, _ := sched.Entry(user, urlA)

		sched.Remove(scheduler.Key{UserID: user, URL: urlA})
		sched.Add(scheduler.Key{UserID: user, URL: urlA})
		second, _ := sched.Entry(user, urlA)
		Expect(second.Generation).To(BeNumerically(">", first.Generation))

		Eventually(fp.started).Should(Receive())
		close(fp.gate)

		Eventually(func() []prober.Result { return agg.History(user, urlA) }).Should(HaveLen(1))
		Consistently(func() []prober.Result { return agg.History(user, urlA) }, 50*time.Millisecond).Should(HaveLen(1))
	})

	It("should delay rather than drop entries when the workers are saturated", func() {
		cfg.Workers = 1
		cfg.QueueSize = 1
		fp.gate = make(chan struct{})
		start()

		for _, u := range []string{urlA, urlB, urlC} {
			sched.Add(scheduler.Key{UserID: user, URL: u})
		}

		Eventually(func() float64 { return testutil.ToFloat64(m.SchedulerSaturated) }).Should(BeNumerically(">=", 1))
		Expect(sched.Len()).To(Equal(3))

		close(fp.gate)
		for _, u := range []string{urlA, urlB, urlC} {
			Eventually(func() []prober.Result { return agg.History(user, u) }).ShouldNot(BeEmpty())
		}
	})

	It("should record results of one url in fire order", func() {
		cfg.BaseInterval = 2 * time.Millisecond
		cfg.MaxBackoff = 2 * time.Millisecond
		start()
		sched.Add(scheduler.Key{UserID: user, URL: urlA})

		Eventually(func() []prober.Result { return agg.History(user, urlA) }).Should(HaveLen(10))
		hist := agg.History(user, urlA)
		for i := 1; i < len(hist); i++ {
			Expect(hist[i-1].Timestamp.Before(hist[i].Timestamp)).To(BeFalse())
		}
	})

	It("should rebuild entries from the registry", func() {
		log := zerolog.Nop()
		reg := registry.NewService(registry.NewMemoryStore(), registry.NewPolicy([]string{"onrender.com", "vercel.app"}, 3), 0, &log)
		ctx := context.Background()
		_, err := reg.AddURL(ctx, user, urlA)
		Expect(err).NotTo(HaveOccurred())
		_, err = reg.AddURL(ctx, "bob@example.com", urlB)
		Expect(err).NotTo(HaveOccurred())

		start()
		Expect(sched.Load(ctx, reg)).To(Succeed())
		Expect(sched.Len()).To(Equal(2))

		Eventually(func() int { return fp.Calls(urlA) }).Should(Equal(1))
		Eventually(func() int { return fp.Calls(urlB) }).Should(Equal(1))
		Expect(testutil.ToFloat64(m.ScheduledEntries)).To(Equal(2.0))
	})

	It("should follow registry add and remove events", func() {
		start()
		log := zerolog.Nop()
		reg := registry.NewService(registry.NewMemoryStore(), registry.NewPolicy([]string{"onrender.com"}, 3), 0, &log)
		reg.SetObserver(sched)

		ctx := context.Background()
		_, err := reg.AddURL(ctx, user, urlA)
		Expect(err).NotTo(HaveOccurred())
		Eventually(func() int { return fp.Calls(urlA) }).Should(Equal(1))

		_, err = reg.RemoveURL(ctx, user, urlA)
		Expect(err).NotTo(HaveOccurred())
		Expect(sched.Len()).To(BeZero())
		Expect(agg.History(user, urlA)).To(BeEmpty())
	})

	It("should stop promptly when the context is cancelled with a probe in flight", func() {
		fp.gate = make(chan struct{})
		start()
		sched.Add(scheduler.Key{UserID: user, URL: urlA})
		Eventually(fp.started).Should(Receive())

		cancel()
		Eventually(done).Should(BeClosed())
		Expect(agg.History(user, urlA)).To(BeEmpty())
	})
})
