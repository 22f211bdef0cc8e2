package status

import (
	"sync"
	"time"

	"keepalive/internals/modules/prober"
)

type key struct {
	userID string
	url    string
}

type urlState struct {
	window      *ring
	total       int
	lastSuccess time.Time
}

// Aggregator keeps a bounded probe window per (user, url) and derives user
// status on read.
type Aggregator struct {
	mu     sync.RWMutex
	size   int
	states map[key]*urlState
}

func NewAggregator(historySize int) *Aggregator {
	if historySize < 1 {
		historySize = 1
	}
	return &Aggregator{
		size:   historySize,
		states: make(map[key]*urlState),
	}
}

// Record appends res to its url's window and reports whether the url just
// went down or came back.
func (a *Aggregator) Record(res prober.Result) Transition {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := key{res.UserID, res.URL}
	st, ok := a.states[k]
	if !ok {
		st = &urlState{window: newRing(a.size)}
		a.states[k] = st
	}

	prev, hadPrev := st.window.latest()
	st.window.push(res)
	st.total++
	if res.Success {
		st.lastSuccess = res.Timestamp
	}

	switch {
	case !res.Success && (!hadPrev || prev.Success):
		return TransitionDown
	case res.Success && hadPrev && !prev.Success:
		return TransitionRecovered
	default:
		return TransitionNone
	}
}

// StatusFor derives the user's status over owned: unknown when there is
// nothing to judge or any url is unprobed, failed when any url's latest
// probe failed, alive otherwise.
func (a *Aggregator) StatusFor(userID string, owned []string) UserStatusView {
	a.mu.RLock()
	defer a.mu.RUnlock()

	view := UserStatusView{
		Status: StatusAlive,
		PerURL: make([]URLStatus, 0, len(owned)),
	}
	if len(owned) == 0 {
		view.Status = StatusUnknown
	}

	unprobed, failed := false, false
	for _, u := range owned {
		us := URLStatus{URL: u}

		st, ok := a.states[key{userID, u}]
		latest, probed := prober.Result{}, false
		if ok {
			latest, probed = st.window.latest()
		}

		if !probed {
			unprobed = true
			view.PerURL = append(view.PerURL, us)
			continue
		}

		us.Probes = st.total
		us.LastResult = &latest
		at := latest.Timestamp
		us.LastProbeAt = &at
		if !st.lastSuccess.IsZero() {
			ls := st.lastSuccess
			us.LastSuccess = &ls
		}
		if !latest.Success {
			failed = true
		}
		view.PerURL = append(view.PerURL, us)
	}

	switch {
	case unprobed:
		view.Status = StatusUnknown
	case failed:
		view.Status = StatusFailed
	}
	return view
}

// History returns the retained window for one url, most recent first.
func (a *Aggregator) History(userID, url string) []prober.Result {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st, ok := a.states[key{userID, url}]
	if !ok {
		return []prober.Result{}
	}
	return st.window.newestFirst()
}

// Forget drops everything recorded for one url.
func (a *Aggregator) Forget(userID, url string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.states, key{userID, url})
}
