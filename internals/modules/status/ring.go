package status

import "keepalive/internals/modules/prober"

// ring keeps the last cap(buf) results of one url.
type ring struct {
	buf   []prober.Result
	next  int
	count int
}

func newRing(size int) *ring {
	return &ring{buf: make([]prober.Result, size)}
}

func (r *ring) push(res prober.Result) {
	r.buf[r.next] = res
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

func (r *ring) latest() (prober.Result, bool) {
	if r.count == 0 {
		return prober.Result{}, false
	}
	i := (r.next - 1 + len(r.buf)) % len(r.buf)
	return r.buf[i], true
}

// newestFirst copies the window out, most recent result first.
func (r *ring) newestFirst() []prober.Result {
	out := make([]prober.Result, 0, r.count)
	for k := 1; k <= r.count; k++ {
		i := (r.next - k + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[i])
	}
	return out
}
