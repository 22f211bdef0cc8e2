package status_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"keepalive/internals/modules/prober"
	"keepalive/internals/modules/status"
)

const (
	user = "alice@example.com"
	urlA = "https://a.onrender.com"
	urlB = "https://b.vercel.app"
)

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func result(url string, success bool, at int) prober.Result {
	r := prober.Result{UserID: user, URL: url, Success: success, Timestamp: base.Add(time.Duration(at) * time.Minute)}
	if !success {
		r.ErrorKind = prober.ErrTimeout
	}
	return r
}

var _ = Describe("Aggregator", func() {
	var agg *status.Aggregator

	BeforeEach(func() {
		agg = status.NewAggregator(3)
	})

	Describe("StatusFor", func() {
		It("should be unknown without urls", func() {
			Expect(agg.StatusFor(user, nil).Status).To(Equal(status.StatusUnknown))
		})

		It("should be unknown while any url is unprobed", func() {
			agg.Record(result(urlA, false, 0))
			view := agg.StatusFor(user, []string{urlA, urlB})
			Expect(view.Status).To(Equal(status.StatusUnknown))
			Expect(view.PerURL).To(HaveLen(2))
			Expect(view.PerURL[1].LastProbeAt).To(BeNil())
		})

		It("should be failed when any latest probe failed", func() {
			agg.Record(result(urlA, true, 0))
			agg.Record(result(urlB, true, 0))
			agg.Record(result(urlB, false, 1))
			Expect(agg.StatusFor(user, []string{urlA, urlB}).Status).To(Equal(status.StatusFailed))
		})

		It("should be alive when every latest probe succeeded", func() {
			agg.Record(result(urlA, false, 0))
			agg.Record(result(urlA, true, 1))
			agg.Record(result(urlB, true, 1))

			view := agg.StatusFor(user, []string{urlA, urlB})
			Expect(view.Status).To(Equal(status.StatusAlive))
			Expect(*view.PerURL[0].LastSuccess).To(Equal(base.Add(time.Minute)))
			Expect(view.PerURL[0].Probes).To(Equal(2))
		})

		It("should keep last success after it leaves the window", func() {
			agg.Record(result(urlA, true, 0))
			for i := 1; i <= 5; i++ {
				agg.Record(result(urlA, false, i))
			}
			view := agg.StatusFor(user, []string{urlA})
			Expect(*view.PerURL[0].LastSuccess).To(Equal(base))
			Expect(*view.PerURL[0].LastProbeAt).To(Equal(base.Add(5 * time.Minute)))
		})

		It("should not mix users", func() {
			agg.Record(result(urlA, true, 0))
			Expect(agg.StatusFor("bob@example.com", []string{urlA}).Status).To(Equal(status.StatusUnknown))
		})
	})

	Describe("Record", func() {
		It("should report down on the first failure and recovered on the next success", func() {
			Expect(agg.Record(result(urlA, false, 0))).To(Equal(status.TransitionDown))
			Expect(agg.Record(result(urlA, false, 1))).To(Equal(status.TransitionNone))
			Expect(agg.Record(result(urlA, true, 2))).To(Equal(status.TransitionRecovered))
			Expect(agg.Record(result(urlA, true, 3))).To(Equal(status.TransitionNone))
			Expect(agg.Record(result(urlA, false, 4))).To(Equal(status.TransitionDown))
		})

		It("should not report a first success as a recovery", func() {
			Expect(agg.Record(result(urlA, true, 0))).To(Equal(status.TransitionNone))
		})
	})

	Describe("History", func() {
		It("should keep the most recent K results, newest first", func() {
			for i := 0; i < 5; i++ {
				agg.Record(result(urlA, i%2 == 0, i))
			}
			hist := agg.History(user, urlA)
			Expect(hist).To(HaveLen(3))
			Expect(hist[0].Timestamp).To(Equal(base.Add(4 * time.Minute)))
			Expect(hist[2].Timestamp).To(Equal(base.Add(2 * time.Minute)))
		})

		It("should be empty for an unknown url", func() {
			Expect(agg.History(user, urlB)).To(BeEmpty())
		})
	})

	Describe("Forget", func() {
		It("should drop the window so status returns to unknown", func() {
			agg.Record(result(urlA, true, 0))
			agg.Forget(user, urlA)
			Expect(agg.History(user, urlA)).To(BeEmpty())
			Expect(agg.StatusFor(user, []string{urlA}).Status).To(Equal(status.StatusUnknown))
		})
	})

	It("should follow the add, succeed, time out scenario", func() {
		owned := []string{urlA}
		Expect(agg.StatusFor(user, owned).Status).To(Equal(status.StatusUnknown))

		agg.Record(result(urlA, true, 0))
		Expect(agg.StatusFor(user, owned).Status).To(Equal(status.StatusAlive))

		agg.Record(result(urlA, false, 10))
		Expect(agg.StatusFor(user, owned).Status).To(Equal(status.StatusFailed))
	})
})
