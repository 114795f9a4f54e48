package rag

import (
	"context"

	"github.com/kofiasare/sankofa/internal/knowledge"
	"github.com/kofiasare/sankofa/internal/log"
)

// RelevanceGate is the minimum similarity a variant's best chunk must
// reach for its result set to be accepted without trying further variants.
const RelevanceGate = 0.3

// Searcher is the search surface Retriever depends on. knowledge.Store
// satisfies it; tests substitute scripted fakes.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Retriever drives similarity search across expanded query variants,
// accepting the first result set that clears the relevance gate and
// falling back to the best set seen otherwise.
type Retriever struct {
	store  Searcher
	logger log.Logger
}

// NewRetriever creates a Retriever over store. A nil logger discards
// output.
func NewRetriever(store Searcher, logger log.Logger) *Retriever {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Retriever{
		store:  store,
		logger: logger,
	}
}

// RetrieveOption configures a Retrieve call.
type RetrieveOption func(*retrieveConfig)

type retrieveConfig struct {
	topK       int
	filter     map[string]string
	maxRetries int
}

// WithTopK sets how many nearest chunks each variant search fetches.
// Default 5.
func WithTopK(k int) RetrieveOption {
	return func(c *retrieveConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithFilter keeps only chunks whose metadata has key equal to value.
// Multiple calls AND together. The filter applies after the nearest-k
// cut, so a filtered variant can return fewer than k chunks even when
// more matching chunks exist further out.
func WithFilter(key, value string) RetrieveOption {
	return func(c *retrieveConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithMaxRetries sets how many expansion attempts to walk through.
// Default 3.
func WithMaxRetries(n int) RetrieveOption {
	return func(c *retrieveConfig) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// searchOutcome records how one variant search went, so a walk that ends
// empty can tell an unreachable backend apart from a corpus with no
// matching content.
type searchOutcome struct {
	attempt int
	variant string
	chunks  int
	err     error
}

// Retrieve searches for chunks relevant to query. For each attempt it
// walks the variants from Expand in order, original query first. The
// first variant whose filtered results reach RelevanceGate wins and no
// further searches run. Otherwise the non-empty result set with the
// highest score seen so far is remembered (strict improvement only, so
// earlier variants win ties) and returned after all attempts. A failed
// search counts as no result for that variant; only context cancellation
// aborts the walk. Every call's outcome is recorded, and a walk where
// all searches failed is reported at warn level.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...RetrieveOption) ([]knowledge.Result, error) {
	cfg := &retrieveConfig{
		topK:       5,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var best []knowledge.Result
	var bestScore float32
	var outcomes []searchOutcome

	for attempt := 0; attempt < cfg.maxRetries; attempt++ {
		for _, variant := range Expand(query, attempt) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			outcome := searchOutcome{attempt: attempt, variant: variant}
			results, err := r.store.Search(ctx, variant, knowledge.WithTopK(cfg.topK))
			if err != nil {
				outcome.err = err
				outcomes = append(outcomes, outcome)
				r.logger.Debug("variant search failed",
					"attempt", outcome.attempt,
					"variant", outcome.variant,
					"error", outcome.err)
				continue
			}

			results = filterByMetadata(results, cfg.filter)
			outcome.chunks = len(results)
			outcomes = append(outcomes, outcome)
			if len(results) == 0 {
				continue
			}

			score := maxScore(results)
			if score >= RelevanceGate {
				r.logger.Debug("relevance gate cleared",
					"attempt", attempt,
					"variant", variant,
					"score", score,
					"chunks", len(results))
				return results, nil
			}
			if best == nil || score > bestScore {
				best = results
				bestScore = score
			}
		}
	}

	r.reportExhaustion(outcomes, best, bestScore)
	return best, nil
}

// reportExhaustion logs how a full walk ended. A backend that failed
// every call is a warning; a corpus that simply had nothing relevant is
// routine.
func (r *Retriever) reportExhaustion(outcomes []searchOutcome, best []knowledge.Result, bestScore float32) {
	failed := 0
	var lastErr error
	for _, outcome := range outcomes {
		if outcome.err != nil {
			failed++
			lastErr = outcome.err
		}
	}

	switch {
	case best != nil:
		r.logger.Debug("gate never cleared, returning best effort",
			"score", bestScore,
			"chunks", len(best),
			"searches", len(outcomes),
			"failed", failed)
	case failed > 0 && failed == len(outcomes):
		r.logger.Warn("every variant search failed",
			"searches", len(outcomes),
			"error", lastErr)
	default:
		r.logger.Debug("no chunks matched any variant",
			"searches", len(outcomes),
			"failed", failed)
	}
}

// filterByMetadata keeps results whose metadata matches every filter key
// exactly.
func filterByMetadata(results []knowledge.Result, filter map[string]string) []knowledge.Result {
	if len(filter) == 0 {
		return results
	}

	filtered := results[:0:0]
	for _, result := range results {
		if metadataMatches(result.Document.Metadata, filter) {
			filtered = append(filtered, result)
		}
	}
	return filtered
}

func metadataMatches(metadata map[string]string, filter map[string]string) bool {
	for key, want := range filter {
		if metadata[key] != want {
			return false
		}
	}
	return true
}

func maxScore(results []knowledge.Result) float32 {
	top := results[0].Similarity
	for _, result := range results[1:] {
		if result.Similarity > top {
			top = result.Similarity
		}
	}
	return top
}
