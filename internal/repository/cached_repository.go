package repository

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/fadilmartias/project-evaluator/internal/model"
)

// CachedEvaluationRepository memoizes per-language stats in front of another
// store. Writes drop the affected entries.
//
// Each language carries a generation bumped by every write (a project delete
// bumps all of them through epoch). A stats read only fills the cache when
// no write landed while it was reading, so a slow read never stores numbers
// older than the last write.
type CachedEvaluationRepository struct {
	EvaluationStore
	stats *cache.Cache

	mu    sync.Mutex
	gens  map[string]uint64
	epoch uint64
}

func NewCachedEvaluationRepository(inner EvaluationStore, ttl time.Duration) *CachedEvaluationRepository {
	return &CachedEvaluationRepository{
		EvaluationStore: inner,
		stats:           cache.New(ttl, 2*ttl),
		gens:            map[string]uint64{},
	}
}

type generation struct {
	lang, epoch uint64
}

func (r *CachedEvaluationRepository) generation(language string) generation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return generation{lang: r.gens[language], epoch: r.epoch}
}

func (r *CachedEvaluationRepository) Upsert(ctx context.Context, e *model.Evaluation) error {
	err := r.EvaluationStore.Upsert(ctx, e)

	r.mu.Lock()
	r.gens[e.Language]++
	r.stats.Delete(e.Language)
	r.mu.Unlock()
	return err
}

func (r *CachedEvaluationRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	n, err := r.EvaluationStore.DeleteByProject(ctx, projectID)
	if n > 0 || err != nil {
		r.mu.Lock()
		r.epoch++
		r.stats.Flush()
		r.mu.Unlock()
	}
	return n, err
}

func (r *CachedEvaluationRepository) Stats(ctx context.Context, language string) (*model.LanguageStats, error) {
	if v, ok := r.stats.Get(language); ok {
		return copyStats(v.(*model.LanguageStats)), nil
	}

	before := r.generation(language)
	stats, err := r.EvaluationStore.Stats(ctx, language)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.gens[language] == before.lang && r.epoch == before.epoch {
		r.stats.SetDefault(language, copyStats(stats))
	}
	r.mu.Unlock()
	return stats, nil
}

func copyStats(s *model.LanguageStats) *model.LanguageStats {
	out := *s
	out.CategoryAverages = maps.Clone(s.CategoryAverages)
	out.GradeDistribution = maps.Clone(s.GradeDistribution)
	return &out
}
