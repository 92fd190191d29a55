package terms

import (
	"context"
	"log/slog"
	"time"

	"context-resolver/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ReasonValidationError marks terms that could not be validated because
// the statistics lookup failed; they are conservatively dropped so the
// query degrades to vector-only retrieval instead of erroring.
const ReasonValidationError = "validation_error"

// ValidationResult summarizes one batch validation.
type ValidationResult struct {
	Kept    []string
	Dropped []domain.ValidatedTerm
	All     []domain.ValidatedTerm
	// CacheHits counts terms answered from the per-tenant cache.
	CacheHits int
	// LookupFailed is set when the statistics lookup errored and the
	// uncached terms were dropped conservatively.
	LookupFailed bool
}

// Validator checks extracted terms against corpus document-frequency
// statistics with a bounded, time-expiring per-(tenant,term) cache.
// Safe for concurrent use; the cache is advisory only.
type Validator struct {
	stats  domain.TermStatsClient
	cache  *expirable.LRU[string, domain.ValidatedTerm]
	logger *slog.Logger
}

// NewValidator builds a validator with a cache of the given size and TTL.
func NewValidator(stats domain.TermStatsClient, cacheSize int, ttl time.Duration, logger *slog.Logger) *Validator {
	if cacheSize <= 0 {
		cacheSize = 2048
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Validator{
		stats:  stats,
		cache:  expirable.NewLRU[string, domain.ValidatedTerm](cacheSize, nil, ttl),
		logger: logger,
	}
}

// ValidateTerms resolves each term's keep/drop status, batching cache
// misses into a single statistics lookup. Never returns an error.
func (v *Validator) ValidateTerms(ctx context.Context, tenant string, terms []string) ValidationResult {
	var result ValidationResult
	if len(terms) == 0 {
		return result
	}

	resolved := make(map[string]domain.ValidatedTerm, len(terms))
	var misses []string
	for _, term := range terms {
		if cached, ok := v.cache.Get(cacheKey(tenant, term)); ok {
			resolved[term] = cached
			result.CacheHits++
			continue
		}
		misses = append(misses, term)
	}

	if len(misses) > 0 {
		stats, err := v.stats.DocumentCounts(ctx, tenant, misses)
		if err != nil {
			result.LookupFailed = true
			v.logger.Warn("term_validation_lookup_failed",
				slog.String("tenant", tenant),
				slog.Int("term_count", len(misses)),
				slog.String("error", err.Error()))
			for _, term := range misses {
				vt := domain.ValidatedTerm{Term: term, Kept: false, Reason: ReasonValidationError}
				resolved[term] = vt
				v.cache.Add(cacheKey(tenant, term), vt)
			}
		} else {
			byTerm := make(map[string]domain.TermStats, len(stats))
			for _, st := range stats {
				byTerm[st.Term] = st
			}
			for _, term := range misses {
				st, ok := byTerm[term]
				vt := domain.ValidatedTerm{Term: term, DocCount: st.DocCount, Kept: ok && st.Kept}
				if !vt.Kept {
					vt.Reason = "corpus_policy"
				}
				resolved[term] = vt
				v.cache.Add(cacheKey(tenant, term), vt)
			}
		}
	}

	for _, term := range terms {
		vt := resolved[term]
		result.All = append(result.All, vt)
		if vt.Kept {
			result.Kept = append(result.Kept, term)
		} else {
			result.Dropped = append(result.Dropped, vt)
		}
	}
	return result
}

func cacheKey(tenant, term string) string {
	return tenant + "\x00" + term
}
