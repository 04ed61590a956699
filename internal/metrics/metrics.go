// Package metrics exposes counters and histograms for the hierarchy
// cache and the bundle codec, grounded on the pack's
// xDarkicex-libravdb/internal/obs.Metrics (a small struct of
// promauto-constructed collectors). Unlike that teacher file, each
// Recorder here owns a private prometheus.Registry rather than
// registering to the global default one, so tests can construct many
// Recorders in the same process without a duplicate-registration
// panic.
package metrics

import (
	"time"

	"github.com/corewell/noderepo/internal/clock"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the collectors for one hierarchy manager / codec
// instance.
type Recorder struct {
	Registry *prometheus.Registry

	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEvictions *prometheus.CounterVec
	CodecDuration  *prometheus.HistogramVec

	clock clock.Clock
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	return NewRecorderWithClock(clock.RealClock{})
}

// NewRecorderWithClock creates a Recorder using c to timestamp codec
// duration measurements, for deterministic tests.
func NewRecorderWithClock(c clock.Clock) *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		Registry: reg,
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noderepo_hierarchy_cache_hits_total",
			Help: "Hierarchy manager cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noderepo_hierarchy_cache_misses_total",
			Help: "Hierarchy manager cache misses.",
		}),
		CacheEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noderepo_hierarchy_cache_evictions_total",
			Help: "Hierarchy manager cache entries evicted, by reason.",
		}, []string{"reason"}),
		CodecDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "noderepo_bundle_codec_duration_seconds",
			Help:    "Bundle encode/decode duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		clock: c,
	}

	reg.MustRegister(r.CacheHits, r.CacheMisses, r.CacheEvictions, r.CodecDuration)
	return r
}

// Hit records a cache hit.
func (r *Recorder) Hit() {
	if r == nil {
		return
	}
	r.CacheHits.Inc()
}

// Miss records a cache miss.
func (r *Recorder) Miss() {
	if r == nil {
		return
	}
	r.CacheMisses.Inc()
}

// Evict records a cache eviction for the given reason (e.g.
// "nodeRemoved", "nodesReplaced", "stateDiscarded").
func (r *Recorder) Evict(reason string) {
	if r == nil {
		return
	}
	r.CacheEvictions.WithLabelValues(reason).Inc()
}

// Start returns the current time from the Recorder's clock, to be
// passed to ObserveCodec once the operation completes. Safe to call on
// a nil Recorder (returns the zero Time; ObserveCodec no-ops on nil).
func (r *Recorder) Start() time.Time {
	if r == nil {
		return time.Time{}
	}
	return r.clock.Now()
}

// ObserveCodec records the duration of a codec operation ("encode" or
// "decode") since start.
func (r *Recorder) ObserveCodec(op string, start time.Time) {
	if r == nil {
		return
	}
	r.CodecDuration.WithLabelValues(op).Observe(r.clock.Now().Sub(start).Seconds())
}
