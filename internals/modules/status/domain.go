package status

import (
	"time"

	"keepalive/internals/modules/prober"
)

type Status string

const (
	StatusAlive   Status = "alive"
	StatusFailed  Status = "failed"
	StatusUnknown Status = "unknown"
)

type Transition int

const (
	TransitionNone Transition = iota
	TransitionDown
	TransitionRecovered
)

func (t Transition) String() string {
	switch t {
	case TransitionDown:
		return "down"
	case TransitionRecovered:
		return "recovered"
	default:
		return "none"
	}
}

type URLStatus struct {
	URL         string         `json:"url"`
	Probes      int            `json:"probes"`
	LastSuccess *time.Time     `json:"last_success,omitempty"`
	LastProbeAt *time.Time     `json:"last_probe_at,omitempty"`
	LastResult  *prober.Result `json:"last_result,omitempty"`
}

type UserStatusView struct {
	Status Status      `json:"status"`
	PerURL []URLStatus `json:"per_url"`
}
