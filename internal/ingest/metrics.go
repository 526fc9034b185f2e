package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/memohai/roastery/internal/apperr"
)

// Observer captures telemetry for the ingestion pipeline.
type Observer interface {
	RecordIngest(flow string, duration time.Duration, err error)
	RecordTranscode(duration time.Duration, inBytes, outBytes int)
	RecordKeyCollision()
	RecordCompensation(action string, err error)
	RecordOrphans(found, deleted int)
}

// PrometheusObserver exports pipeline metrics to Prometheus.
type PrometheusObserver struct {
	ingestDuration  *prometheus.HistogramVec
	ingestFailures  *prometheus.CounterVec
	transcodeTime   prometheus.Histogram
	transcodedBytes *prometheus.CounterVec
	keyCollisions   prometheus.Counter
	compensations   *prometheus.CounterVec
	orphans         *prometheus.CounterVec
}

// NewPrometheusObserver registers the ingestion metrics on reg.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "roastery"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		ingestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Latency of ingestion flows.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flow"}),
		ingestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "failures_total",
			Help:      "Ingestion failures by flow and error kind.",
		}, []string{"flow", "kind"}),
		transcodeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "transcode_seconds",
			Help:      "Time spent decoding, resizing and encoding images.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		transcodedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "transcode_bytes_total",
			Help:      "Bytes entering and leaving the transcoder.",
		}, []string{"direction"}),
		keyCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "key_collisions_total",
			Help:      "Blob writes refused because the generated key already existed.",
		}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "compensations_total",
			Help:      "Compensating actions by action and result.",
		}, []string{"action", "result"}),
		orphans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "orphans_total",
			Help:      "Orphaned blobs found and deleted by the sweeper.",
		}, []string{"result"}),
	}
	collectors := []prometheus.Collector{
		o.ingestDuration, o.ingestFailures, o.transcodeTime, o.transcodedBytes,
		o.keyCollisions, o.compensations, o.orphans,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return nil, fmt.Errorf("register ingest metric: %w", err)
		}
	}
	return o, nil
}

func (o *PrometheusObserver) RecordIngest(flow string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.ingestDuration.WithLabelValues(flow).Observe(duration.Seconds())
	if err != nil {
		o.ingestFailures.WithLabelValues(flow, string(apperr.KindOf(err))).Inc()
	}
}

func (o *PrometheusObserver) RecordTranscode(duration time.Duration, inBytes, outBytes int) {
	if o == nil {
		return
	}
	o.transcodeTime.Observe(duration.Seconds())
	o.transcodedBytes.WithLabelValues("in").Add(float64(inBytes))
	o.transcodedBytes.WithLabelValues("out").Add(float64(outBytes))
}

func (o *PrometheusObserver) RecordKeyCollision() {
	if o == nil {
		return
	}
	o.keyCollisions.Inc()
}

func (o *PrometheusObserver) RecordCompensation(action string, err error) {
	if o == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	o.compensations.WithLabelValues(action, result).Inc()
}

func (o *PrometheusObserver) RecordOrphans(found, deleted int) {
	if o == nil {
		return
	}
	o.orphans.WithLabelValues("found").Add(float64(found))
	o.orphans.WithLabelValues("deleted").Add(float64(deleted))
}

type nopObserver struct{}

func (nopObserver) RecordIngest(string, time.Duration, error) {}

func (nopObserver) RecordTranscode(time.Duration, int, int) {}

func (nopObserver) RecordKeyCollision() {}

func (nopObserver) RecordCompensation(string, error) {}

func (nopObserver) RecordOrphans(int, int) {}
