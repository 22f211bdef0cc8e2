package prober

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"keepalive/config"
	"keepalive/pkg/metrics"
)

// drained bytes per response, enough to let the transport reuse the conn
const maxDrainBytes = 64 << 10

type Prober struct {
	client     *http.Client
	timeout    time.Duration
	method     string
	healthPath string
	userAgent  string
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

func New(cfg config.ProbeConfig, client *http.Client, m *metrics.Metrics, log *zerolog.Logger) *Prober {
	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}
	return &Prober{
		client:     client,
		timeout:    cfg.Timeout,
		method:     method,
		healthPath: cfg.HealthPath,
		userAgent:  cfg.UserAgent,
		metrics:    m,
		log:        log.With().Str("component", "prober").Logger(),
	}
}

// Probe issues one health-check request against target. It never retries
// and never returns an error: failures are reported in the Result.
func (p *Prober) Probe(ctx context.Context, target string) Result {
	start := time.Now()
	res := Result{
		ID:        uuid.New(),
		URL:       target,
		Timestamp: start.UTC(),
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	endpoint, err := p.endpoint(target)
	if err != nil {
		// registered urls are validated, so this is our bug
		p.log.Error().Err(err).Str("url", target).Msg("cannot build probe request")
		res.ErrorKind = ErrInvalidRequest
		return p.finish(res, start)
	}

	status, err := p.do(reqCtx, p.method, endpoint)
	if err == nil && status == http.StatusMethodNotAllowed && p.method == http.MethodHead {
		status, err = p.do(reqCtx, http.MethodGet, endpoint)
	}

	switch {
	case err != nil:
		res.ErrorKind = Classify(err)
		p.log.Debug().Err(err).Str("url", target).Str("error_kind", string(res.ErrorKind)).Msg("probe failed")
	case status < 200 || status > 299:
		res.HTTPStatus = status
		res.ErrorKind = ErrHTTPError
	default:
		res.HTTPStatus = status
		res.Success = true
	}

	return p.finish(res, start)
}

func (p *Prober) finish(res Result, start time.Time) Result {
	latency := time.Since(start)
	res.LatencyMs = latency.Milliseconds()
	p.metrics.ProbeObserved(res.Success, string(res.ErrorKind), latency)
	return res
}

func (p *Prober) do(ctx context.Context, method, endpoint string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return 0, err
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	return resp.StatusCode, nil
}

func (p *Prober) endpoint(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", &url.Error{Op: "parse", URL: target, Err: errors.New("missing scheme or host")}
	}
	if p.healthPath == "" {
		return u.String(), nil
	}
	return u.ResolveReference(&url.URL{Path: p.healthPath}).String(), nil
}

// Classify maps a transport error to an ErrorKind.
func Classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrDNSFailure
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrConnectionRefused
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	return ErrNetwork
}
