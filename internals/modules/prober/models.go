package prober

import (
	"time"

	"github.com/google/uuid"
)

type ErrorKind string

const (
	ErrNone              ErrorKind = ""
	ErrTimeout           ErrorKind = "Timeout"
	ErrConnectionRefused ErrorKind = "ConnectionRefused"
	ErrDNSFailure        ErrorKind = "DNSFailure"
	ErrHTTPError         ErrorKind = "HTTPError"
	ErrNetwork           ErrorKind = "NetworkError"
	ErrInvalidRequest    ErrorKind = "InvalidRequest"
)

// Result is one probe outcome. It is never modified after the probe returns.
type Result struct {
	ID         uuid.UUID `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	URL        string    `json:"url"`
	Timestamp  time.Time `json:"timestamp"`
	Success    bool      `json:"success"`
	LatencyMs  int64     `json:"latency_ms"`
	HTTPStatus int       `json:"http_status,omitempty"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
}
