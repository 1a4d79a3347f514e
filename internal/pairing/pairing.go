// Package pairing decides which benchmark labels are compared with which.
package pairing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/torosent/benchdiff/internal/metrics"
)

// Pair is an ordered (baseline, candidate) comparison.
type Pair struct {
	Baseline  metrics.Bench
	Candidate metrics.Bench
}

func (p Pair) String() string {
	return fmt.Sprintf("%s..%s", p.Baseline, p.Candidate)
}

// ErrConfiguration is matched by errors caused by requesting labels the
// input never provided.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError lists requested labels that were never observed.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) == 1 {
		return fmt.Sprintf("requested label %q never appeared in the input", e.Missing[0])
	}
	quoted := make([]string, len(e.Missing))
	for i, l := range e.Missing {
		quoted[i] = fmt.Sprintf("%q", l)
	}
	return fmt.Sprintf("requested labels never appeared in the input: %s", strings.Join(quoted, ", "))
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// Explicit pairs baseline with every other requested label, in request order.
func Explicit(baseline string, labels []string) []Pair {
	pairs := make([]Pair, 0, len(labels))
	for _, l := range labels {
		if l == baseline {
			continue
		}
		pairs = append(pairs, Pair{Baseline: metrics.Bench(baseline), Candidate: metrics.Bench(l)})
	}
	return pairs
}

// Consecutive compares each label with the one after it.
func Consecutive(labels []string) []Pair {
	if len(labels) < 2 {
		return nil
	}
	pairs := make([]Pair, 0, len(labels)-1)
	for i := 1; i < len(labels); i++ {
		pairs = append(pairs, Pair{Baseline: metrics.Bench(labels[i-1]), Candidate: metrics.Bench(labels[i])})
	}
	return pairs
}

// Strategy proposes pairs from the observed labels when the caller gave no
// explicit guidance. observed is in first-seen order; implementations must
// be deterministic in that order.
type Strategy interface {
	Pairs(observed []metrics.Bench) []Pair
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(observed []metrics.Bench) []Pair

func (f StrategyFunc) Pairs(observed []metrics.Bench) []Pair { return f(observed) }

const (
	StrategyConsecutive = "consecutive"
	StrategyFirst       = "first"
)

// ConsecutiveSeen compares consecutive labels in first-seen order.
var ConsecutiveSeen Strategy = StrategyFunc(func(observed []metrics.Bench) []Pair {
	if len(observed) < 2 {
		return nil
	}
	pairs := make([]Pair, 0, len(observed)-1)
	for i := 1; i < len(observed); i++ {
		pairs = append(pairs, Pair{Baseline: observed[i-1], Candidate: observed[i]})
	}
	return pairs
})

// FirstSeen uses the first label seen as the baseline for every other.
var FirstSeen Strategy = StrategyFunc(func(observed []metrics.Bench) []Pair {
	if len(observed) < 2 {
		return nil
	}
	pairs := make([]Pair, 0, len(observed)-1)
	for _, b := range observed[1:] {
		pairs = append(pairs, Pair{Baseline: observed[0], Candidate: b})
	}
	return pairs
})

// StrategyByName returns the named default strategy. An empty name selects
// consecutive pairing.
func StrategyByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyConsecutive:
		return ConsecutiveSeen, nil
	case StrategyFirst:
		return FirstSeen, nil
	default:
		return nil, fmt.Errorf("unknown pairing strategy %q (supported: %s, %s)", name, StrategyConsecutive, StrategyFirst)
	}
}

// Plan combines explicit configuration with a fallback strategy.
type Plan struct {
	baseline string
	labels   []string
	strategy Strategy
}

// NewPlan builds a pairing plan. strategy may be nil, in which case
// consecutive first-seen pairing is used.
func NewPlan(baseline string, labels []string, strategy Strategy) *Plan {
	if strategy == nil {
		strategy = ConsecutiveSeen
	}
	return &Plan{
		baseline: baseline,
		labels:   append([]string(nil), labels...),
		strategy: strategy,
	}
}

// Requested returns every label named explicitly, baseline first.
func (p *Plan) Requested() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(l string) {
		if l == "" || seen[l] {
			return
		}
		seen[l] = true
		out = append(out, l)
	}
	add(p.baseline)
	for _, l := range p.labels {
		add(l)
	}
	return out
}

// Pairs returns the full list of pairs given the labels observed so far.
// The result may reference labels that were never observed.
func (p *Plan) Pairs(observed []metrics.Bench) []Pair {
	switch {
	case p.baseline != "" && len(p.labels) > 0:
		return Explicit(p.baseline, p.labels)
	case p.baseline != "":
		others := make([]string, 0, len(observed))
		for _, b := range observed {
			others = append(others, string(b))
		}
		return Explicit(p.baseline, others)
	case len(p.labels) > 0:
		return Consecutive(p.labels)
	default:
		return p.strategy.Pairs(observed)
	}
}

// Resolve returns the pairs whose labels have both been observed and the
// requested labels still missing, sorted in request order.
func (p *Plan) Resolve(m *metrics.Measurements) (pairs []Pair, missing []string) {
	for _, l := range p.Requested() {
		if !m.Has(metrics.Bench(l)) {
			missing = append(missing, l)
		}
	}
	for _, pair := range p.Pairs(m.Benches()) {
		if m.Has(pair.Baseline) && m.Has(pair.Candidate) {
			pairs = append(pairs, pair)
		}
	}
	return pairs, missing
}

// Final resolves the plan at end of stream. Any requested label that never
// appeared is reported as a ConfigurationError.
func (p *Plan) Final(m *metrics.Measurements) ([]Pair, error) {
	pairs, missing := p.Resolve(m)
	if len(missing) > 0 {
		return nil, &ConfigurationError{Missing: missing}
	}
	return pairs, nil
}

// Validate reports duplicated requested labels and requests that cannot
// form a single pair.
func Validate(baseline string, labels []string) error {
	counts := make(map[string]int, len(labels))
	for _, l := range labels {
		counts[l]++
	}
	var dups []string
	for l, n := range counts {
		if n > 1 {
			dups = append(dups, l)
		}
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return fmt.Errorf("labels requested more than once: %s", strings.Join(dups, ", "))
	}
	if baseline != "" && len(labels) == 1 && labels[0] == baseline {
		return fmt.Errorf("baseline %q has nothing to compare against", baseline)
	}
	if baseline == "" && len(labels) == 1 {
		return fmt.Errorf("label %q needs a base label or a second label to compare against", labels[0])
	}
	return nil
}
