// Package pipeline runs the validate → clean → aggregate sequence over one
// parsed input. It does no I/O; callers serialize the Result.
package pipeline

import (
	"time"

	"csvclean/internal/schema"
	"csvclean/internal/stats"
	"csvclean/internal/transformer/builtin"
)

// Config carries the inputs that shape a run. The zero value is usable and
// requires schema.RequiredColumns().
type Config struct {
	// Required overrides the required columns when non-nil.
	Required schema.Columns

	// Reject observes rows dropped by the cleaner. Optional.
	Reject func(builtin.RejectedRow)

	// Step observes each stage once it finishes. Optional.
	Step func(name string, err error, d time.Duration)
}

// Stage names passed to Config.Step.
const (
	StepValidate  = "validate"
	StepClean     = "clean"
	StepAggregate = "aggregate"
)

func (c Config) observe(name string, start time.Time, err error) {
	if c.Step != nil {
		c.Step(name, err, time.Since(start))
	}
}

func (c Config) required() schema.Columns {
	if c.Required != nil {
		return c.Required
	}
	return schema.RequiredColumns()
}

// Result is the output of a successful run.
type Result struct {
	Records []schema.Record
	Stats   stats.Stats
}

// Run validates headers, cleans rows and aggregates the kept records. A
// schema failure aborts before any row is read and returns a zero Result.
func Run(headers []string, rows []schema.RawRow, cfg Config) (Result, error) {
	start := time.Now()
	err := schema.Validate(headers, cfg.required())
	cfg.observe(StepValidate, start, err)
	if err != nil {
		return Result{}, err
	}

	start = time.Now()
	recs := builtin.Cleaner{Reject: cfg.Reject}.Clean(rows)
	cfg.observe(StepClean, start, nil)

	start = time.Now()
	st := stats.Aggregate(recs)
	cfg.observe(StepAggregate, start, nil)

	return Result{Records: recs, Stats: st}, nil
}
