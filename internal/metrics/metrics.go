// Package metrics records benchmark samples as prometheus metrics.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "excludebench"

// Recorder owns a private registry, so concurrent runs never share series.
type Recorder struct {
	registry *prometheus.Registry
	compile  *prometheus.HistogramVec
	maskFill *prometheus.HistogramVec
	rules    *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with its metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		compile: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compile_duration_seconds",
				Help:      "Latency of compiling a structural tag into a grammar",
				Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
			},
			[]string{"case"},
		),
		maskFill: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mask_fill_duration_seconds",
				Help:      "Latency of deriving the next-token bitmask after one character",
				Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 12),
			},
			[]string{"case"},
		),
		rules: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "grammar_rules",
				Help:      "Number of rules in the compiled grammar",
			},
			[]string{"case"},
		),
	}
	r.registry.MustRegister(r.compile, r.maskFill, r.rules)
	return r
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// SetRules records the rule count of a case.
func (r *Recorder) SetRules(label string, n int) {
	r.rules.WithLabelValues(label).Set(float64(n))
}

// Case returns an observer that attributes samples to label. Series are
// created on the first sample.
func (r *Recorder) Case(label string) *CaseObserver {
	return &CaseObserver{recorder: r, label: label}
}

// WriteText writes every metric family in the text exposition format.
func (r *Recorder) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// CaseObserver feeds probe samples of one case into the recorder.
type CaseObserver struct {
	recorder *Recorder
	label    string
}

// ObserveCompile records one compilation.
func (o *CaseObserver) ObserveCompile(d time.Duration) {
	o.recorder.compile.WithLabelValues(o.label).Observe(d.Seconds())
}

// ObserveMaskFill records one bitmask derivation.
func (o *CaseObserver) ObserveMaskFill(d time.Duration) {
	o.recorder.maskFill.WithLabelValues(o.label).Observe(d.Seconds())
}
