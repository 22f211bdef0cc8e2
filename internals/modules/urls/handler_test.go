package urls_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"keepalive/config"
	"keepalive/internals/identity"
	middle "keepalive/internals/middleware"
	"keepalive/internals/modules/prober"
	"keepalive/internals/modules/registry"
	"keepalive/internals/modules/scheduler"
	"keepalive/internals/modules/status"
	"keepalive/internals/modules/urls"
	"keepalive/pkg/apperror"
	"keepalive/pkg/utils"
)

type stubVerifier map[string]string

func (s stubVerifier) VerifyToken(_ context.Context, token string) (identity.Identity, error) {
	user, ok := s[token]
	if !ok {
		return identity.Identity{}, apperror.New(apperror.Unauthorised, "test.verify", errors.New("unknown token"))
	}
	return identity.Identity{UserID: user, Email: user}, nil
}

// scriptedProber parks every probe until the test feeds it an outcome.
type scriptedProber struct {
	mu       sync.Mutex
	calls    map[string]int
	outcomes chan bool
}

func (p *scriptedProber) Probe(ctx context.Context, url string) prober.Result {
	p.mu.Lock()
	p.calls[url]++
	p.mu.Unlock()

	res := prober.Result{URL: url, Timestamp: time.Now()}
	select {
	case ok := <-p.outcomes:
		res.Success = ok
		if ok {
			res.HTTPStatus = http.StatusOK
		} else {
			res.ErrorKind = prober.ErrTimeout
		}
	case <-ctx.Done():
		res.ErrorKind = prober.ErrTimeout
	}
	return res
}

func (p *scriptedProber) Calls(url string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[url]
}

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
	urlA  = "https://a.onrender.com"
)

var _ = Describe("URLs gateway", func() {
	var (
		router http.Handler
		fp     *scriptedProber
		cancel context.CancelFunc
		done   chan struct{}
	)

	BeforeEach(func() {
		log := zerolog.Nop()

		svc := registry.NewService(
			registry.NewMemoryStore(),
			registry.NewPolicy([]string{"onrender.com", "vercel.app"}, 2),
			time.Second,
			&log,
		)
		agg := status.NewAggregator(10)
		fp = &scriptedProber{calls: make(map[string]int), outcomes: make(chan bool)}

		sched := scheduler.New(config.SchedulerConfig{
			BaseInterval:    10 * time.Millisecond,
			RetryInterval:   10 * time.Millisecond,
			MaxBackoff:      10 * time.Millisecond,
			SaturationDelay: 10 * time.Millisecond,
			Workers:         2,
			QueueSize:       4,
		}, fp, agg, nil, nil, &log)
		svc.SetObserver(sched)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan struct{})
		go func() {
			defer close(done)
			sched.Run(ctx)
		}()

		authMW := middle.NewAuthMiddleware(stubVerifier{"tok-alice": alice, "tok-bob": bob}, &log)
		h := urls.NewHandler(svc, agg, validator.New())

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Mount("/api", urls.Routes(h, authMW))
		router = r
	})

	AfterEach(func() {
		cancel()
		Eventually(done).Should(BeClosed())
	})

	call := func(method, path, token string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		if token != "" {
			req.Header.Set("Authorization", token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	getURLs := func(token string) urls.GetURLsResponse {
		rec := call(http.MethodGet, "/api/get-urls", token, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		var out urls.GetURLsResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		return out
	}

	errorOf := func(rec *httptest.ResponseRecorder) utils.ErrorResponse {
		var out utils.ErrorResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		return out
	}

	It("should follow a url from registration to removal", func() {
		rec := call(http.MethodPost, "/api/add-url", "Bearer tok-alice", urls.URLRequest{URL: urlA})
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"urls":["https://a.onrender.com"]}`))

		view := getURLs("Bearer tok-alice")
		Expect(view.URLs).To(Equal([]string{urlA}))
		Expect(view.Status).To(Equal(status.StatusUnknown))

		fp.outcomes <- true
		Eventually(func() status.Status { return getURLs("tok-alice").Status }).Should(Equal(status.StatusAlive))

		fp.outcomes <- false
		Eventually(func() status.Status { return getURLs("tok-alice").Status }).Should(Equal(status.StatusFailed))

		rec = call(http.MethodPost, "/api/remove-url", "tok-alice", urls.URLRequest{URL: urlA})
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"urls":[]}`))

		// release a probe that may already be parked for the removed url
		select {
		case fp.outcomes <- true:
		case <-time.After(50 * time.Millisecond):
		}
		calls := fp.Calls(urlA)
		Consistently(func() int { return fp.Calls(urlA) }, 100*time.Millisecond).Should(Equal(calls))

		view = getURLs("tok-alice")
		Expect(view.URLs).To(BeEmpty())
		Expect(view.Status).To(Equal(status.StatusUnknown))
	})

	It("should expose the probe history of an owned url", func() {
		call(http.MethodPost, "/api/add-url", "tok-alice", urls.URLRequest{URL: urlA})
		fp.outcomes <- true
		fp.outcomes <- false

		Eventually(func() int {
			rec := call(http.MethodGet, "/api/url-history?url="+urlA, "tok-alice", nil)
			var out urls.URLHistoryResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
			return len(out.Results)
		}).Should(BeNumerically(">=", 2))

		rec := call(http.MethodGet, "/api/url-history?url="+urlA, "tok-alice", nil)
		var out urls.URLHistoryResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		Expect(out.URL).To(Equal(urlA))
		Expect(out.Results[0].Success).To(BeFalse())
		Expect(out.Results[1].Success).To(BeTrue())

		rec = call(http.MethodGet, "/api/url-history?url="+urlA, "tok-bob", nil)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should keep users isolated", func() {
		call(http.MethodPost, "/api/add-url", "tok-alice", urls.URLRequest{URL: urlA})
		Expect(getURLs("tok-bob").URLs).To(BeEmpty())

		rec := call(http.MethodPost, "/api/remove-url", "tok-bob", urls.URLRequest{URL: urlA})
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(getURLs("tok-alice").URLs).To(Equal([]string{urlA}))
	})

	DescribeTable("add-url errors",
		func(body any, code int, kind apperror.Kind) {
			call(http.MethodPost, "/api/add-url", "tok-alice", urls.URLRequest{URL: urlA})

			rec := call(http.MethodPost, "/api/add-url", "tok-alice", body)
			Expect(rec.Code).To(Equal(code))
			resp := errorOf(rec)
			Expect(resp.Kind).To(Equal(kind))
			Expect(resp.Error).NotTo(BeEmpty())
			Expect(resp.RequestID).NotTo(BeEmpty())
		},
		Entry("duplicate", urls.URLRequest{URL: urlA}, http.StatusConflict, apperror.DuplicateURL),
		Entry("plain http", urls.URLRequest{URL: "http://b.onrender.com"}, http.StatusBadRequest, apperror.InvalidURL),
		Entry("domain outside the allow list", urls.URLRequest{URL: "https://example.com"}, http.StatusBadRequest, apperror.InvalidURL),
		Entry("missing url", map[string]string{}, http.StatusBadRequest, apperror.InvalidInput),
	)

	It("should enforce the per-user quota", func() {
		Expect(call(http.MethodPost, "/api/add-url", "tok-alice", urls.URLRequest{URL: urlA}).Code).To(Equal(http.StatusOK))
		Expect(call(http.MethodPost, "/api/add-url", "tok-alice", urls.URLRequest{URL: "https://b.vercel.app"}).Code).To(Equal(http.StatusOK))

		rec := call(http.MethodPost, "/api/add-url", "tok-alice", urls.URLRequest{URL: "https://c.vercel.app"})
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(errorOf(rec).Kind).To(Equal(apperror.QuotaExceeded))
	})

	It("should reject a malformed body", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/add-url", bytes.NewBufferString("{not json"))
		req.Header.Set("Authorization", "tok-alice")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should reject calls without a valid token", func() {
		Expect(call(http.MethodGet, "/api/get-urls", "", nil).Code).To(Equal(http.StatusUnauthorized))
		Expect(call(http.MethodGet, "/api/get-urls", "Bearer expired", nil).Code).To(Equal(http.StatusUnauthorized))
		Expect(call(http.MethodPost, "/api/add-url", "expired", urls.URLRequest{URL: urlA}).Code).To(Equal(http.StatusUnauthorized))
	})
})
