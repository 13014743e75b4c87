package condition

import "strings"

// Stage is one evaluator of a Batch.
type Stage struct {
	Evaluator Evaluator
	Metadata  Metadata
}

// Verdict records the outcome of one stage.
type Verdict struct {
	Stage  Stage
	Passed bool
}

func (v Verdict) String() string {
	mark := "✗"
	if v.Passed {
		mark = "✓"
	}
	return mark + " " + evaluatorName(v.Stage.Evaluator) + formatMeta(v.Stage.Metadata)
}

// Report holds every verdict of one Batch evaluation, in stage order.
type Report struct {
	Verdicts []Verdict
}

// Passed reports whether every stage passed.
func (r Report) Passed() bool {
	for _, v := range r.Verdicts {
		if !v.Passed {
			return false
		}
	}
	return true
}

// Failed returns the stages that did not pass.
func (r Report) Failed() []Verdict {
	var out []Verdict
	for _, v := range r.Verdicts {
		if !v.Passed {
			out = append(out, v)
		}
	}
	return out
}

func (r Report) String() string {
	parts := make([]string, len(r.Verdicts))
	for i, v := range r.Verdicts {
		parts[i] = v.String()
	}
	return strings.Join(parts, "; ")
}

// BatchCondition runs a fixed list of stages without short-circuiting so that
// every verdict is available for diagnostics.
type BatchCondition struct {
	stages []Stage
}

// Batch builds a BatchCondition. The stage list is fixed at construction.
func Batch(stages ...Stage) *BatchCondition {
	b := &BatchCondition{stages: make([]Stage, len(stages))}
	copy(b.stages, stages)
	return b
}

// Report evaluates every stage in order.
func (b *BatchCondition) Report(env Environment) Report {
	r := Report{Verdicts: make([]Verdict, 0, len(b.stages))}
	for _, s := range b.stages {
		r.Verdicts = append(r.Verdicts, Verdict{Stage: s, Passed: s.Evaluator.Evaluate(env, s.Metadata)})
	}
	return r
}

// Matches implements Condition.
func (b *BatchCondition) Matches(env Environment) bool {
	return b.Report(env).Passed()
}

// Add implements Condition. The stage list is fixed.
func (b *BatchCondition) Add(Condition) error { return ErrImmutable }

func (b *BatchCondition) String() string {
	parts := make([]string, len(b.stages))
	for i, s := range b.stages {
		parts[i] = evaluatorName(s.Evaluator) + formatMeta(s.Metadata)
	}
	return "batch(" + strings.Join(parts, ", ") + ")"
}
