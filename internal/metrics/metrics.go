// Package metrics records what a cleaning run did: how long each step took,
// how many rows were read, kept, dropped (and why) and stored.
//
// Callers use the package-level Record* functions. They forward to the
// installed Backend, which is a no-op until SetBackend is called, so the run
// code never checks whether metrics are enabled. Concrete systems live in
// subpackages (prompush, datadog).
package metrics

import (
	"sort"
	"time"
)

// Metric names.
const (
	StepTotal    = "csvclean_step_total"
	StepDuration = "csvclean_step_duration_seconds"
	RecordsTotal = "csvclean_records_total"
	BatchesTotal = "csvclean_batches_total"
)

// Row kinds for the "kind" label of RecordsTotal.
const (
	KindRead    = "read"
	KindValid   = "valid"
	KindDropped = "dropped"
	KindStored  = "stored"
)

// Label keys attached by this package.
const (
	LabelJob    = "job"
	LabelStep   = "step"
	LabelStatus = "status"
	LabelKind   = "kind"
	LabelReason = "reason"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend receives counter increments and duration samples.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush delivers buffered data; push-based backends send here.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs b. A nil b leaves the current backend in place.
func SetBackend(b Backend) {
	if b != nil {
		backend = b
	}
}

// Flush flushes the installed backend.
func Flush() error { return backend.Flush() }

// RecordStep counts one run of step (read, validate, clean, aggregate, write,
// store) and observes its duration. A non-nil err marks it as a failure.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{LabelJob: job, LabelStep: step, LabelStatus: status}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow adds delta rows of kind. Non-positive deltas are ignored.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{LabelJob: job, LabelKind: kind})
}

// RecordDropped adds the dropped rows of a run, one increment per cleaner
// reject reason (empty_age, non_digit_age, age_out_of_range) in sorted order.
func RecordDropped(job string, byReason map[string]int) {
	reasons := make([]string, 0, len(byReason))
	for r, n := range byReason {
		if n > 0 {
			reasons = append(reasons, r)
		}
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		backend.IncCounter(RecordsTotal, float64(byReason[r]), Labels{
			LabelJob:    job,
			LabelKind:   KindDropped,
			LabelReason: r,
		})
	}
}

// RecordBatches adds delta flushed storage batches.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{LabelJob: job})
}
