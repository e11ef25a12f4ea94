package question

import (
	"math/rand/v2"

	"kbv/internal/question/metrics"
	"kbv/internal/question/models"
)

const (
	// minCoverage is the number of independent categories a selection needs.
	minCoverage = 2
	// selectionSize is how many questions are asked when more than two survive.
	selectionSize = 3
)

// ShuffleFunc permutes n elements through swap, like rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// FilterEngine selects the questions asked of a subject.
type FilterEngine struct {
	catalog *Catalog
	shuffle ShuffleFunc
	metrics *metrics.Metrics
}

// FilterOption configures a FilterEngine.
type FilterOption func(*FilterEngine)

// WithShuffle replaces the unseeded shuffle. Tests only.
func WithShuffle(fn ShuffleFunc) FilterOption {
	return func(f *FilterEngine) {
		f.shuffle = fn
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) FilterOption {
	return func(f *FilterEngine) {
		f.metrics = m
	}
}

// NewFilterEngine creates an engine over catalog.
func NewFilterEngine(catalog *Catalog, opts ...FilterOption) *FilterEngine {
	f := &FilterEngine{
		catalog: catalog,
		shuffle: rand.Shuffle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Selection is the filter output. Questions is empty when fewer than two
// categories are covered.
type Selection struct {
	Questions []models.Question
	Coverage  int
}

// Insufficient reports the thin-file outcome.
func (s Selection) Insufficient() bool {
	return len(s.Questions) == 0
}

// Filter drops the low-confidence question, requires coverage of at least two
// categories, then returns both survivors or a random three. Selection is
// deliberately not reproducible.
func (f *FilterEngine) Filter(candidates []models.Question) Selection {
	seen := make(map[string]struct{}, len(candidates))
	perCategory := make(map[Category]int, len(Categories))
	pool := make([]models.Question, 0, len(candidates))

	for _, q := range candidates {
		if _, dup := seen[q.QuestionKey]; dup {
			continue
		}
		seen[q.QuestionKey] = struct{}{}
		if f.catalog.IsLowConfidence(q.QuestionKey) {
			continue
		}
		cat, ok := f.catalog.CategoryOf(q.QuestionKey)
		if !ok {
			f.metrics.IncUncategorised()
			continue
		}
		f.metrics.ObserveCandidate(string(cat))
		perCategory[cat]++
		pool = append(pool, q)
	}

	coverage := len(perCategory)
	if coverage < minCoverage {
		f.metrics.ObserveSelection(coverage, 0)
		return Selection{Questions: []models.Question{}, Coverage: coverage}
	}

	// two survivors are both asked; otherwise a random permutation's first three
	if len(pool) > minCoverage {
		f.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		pool = pool[:selectionSize]
	}

	f.metrics.ObserveSelection(coverage, len(pool))
	return Selection{Questions: pool, Coverage: coverage}
}
