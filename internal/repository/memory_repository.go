package repository

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fadilmartias/project-evaluator/internal/model"
)

type memoryKey struct {
	projectID uuid.UUID
	language  string
}

type memoryRow struct {
	seq  uint64
	eval model.Evaluation
}

// MemoryEvaluationRepository keeps evaluations in process memory. It backs
// tests and DB_DRIVER=memory.
type MemoryEvaluationRepository struct {
	mu   sync.RWMutex
	rows map[memoryKey]*memoryRow
	seq  uint64
	now  func() time.Time
}

func NewMemoryEvaluationRepository() *MemoryEvaluationRepository {
	return &MemoryEvaluationRepository{
		rows: make(map[memoryKey]*memoryRow),
		now:  time.Now,
	}
}

// WithClock replaces the timestamp source.
func (r *MemoryEvaluationRepository) WithClock(now func() time.Time) *MemoryEvaluationRepository {
	r.now = now
	return r
}

func (r *MemoryEvaluationRepository) Upsert(ctx context.Context, e *model.Evaluation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	key := memoryKey{e.ProjectID, e.Language}
	row, ok := r.rows[key]
	if ok {
		e.ID = row.eval.ID
		e.CreatedAt = row.eval.CreatedAt
	} else {
		r.seq++
		row = &memoryRow{seq: r.seq}
		r.rows[key] = row
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
	}
	e.UpdatedAt = now
	row.eval = cloneEvaluation(e)
	return nil
}

func (r *MemoryEvaluationRepository) FindByProjectLanguage(ctx context.Context, projectID uuid.UUID, language string) (*model.Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.rows[memoryKey{projectID, language}]
	if !ok {
		return nil, ErrNotFound
	}
	e := cloneEvaluation(&row.eval)
	return &e, nil
}

func (r *MemoryEvaluationRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := []model.Evaluation{}
	for key, row := range r.rows {
		if key.projectID == projectID {
			items = append(items, cloneEvaluation(&row.eval))
		}
	}
	sortByLanguage(items)
	return items, nil
}

func (r *MemoryEvaluationRepository) ListByLanguage(ctx context.Context, f ListFilter) ([]model.Evaluation, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	var rows []*memoryRow
	for _, row := range r.rows {
		if f.matches(&row.eval) {
			rows = append(rows, row)
		}
	}
	items := make([]model.Evaluation, 0, len(rows))
	field := f.sortField()
	sort.Slice(rows, func(i, j int) bool {
		a, b := &rows[i].eval, &rows[j].eval
		if c := compareField(a, b, field); c != 0 {
			if f.SortDesc {
				return c > 0
			}
			return c < 0
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})
	for _, row := range rows {
		items = append(items, cloneEvaluation(&row.eval))
	}
	r.mu.RUnlock()

	return paginate(items, f.Offset, f.Limit), int64(len(items)), nil
}

func (r *MemoryEvaluationRepository) Stats(ctx context.Context, language string) (*model.LanguageStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := emptyStats(language)
	var scores []float64
	sums := make(map[string]float64, len(categoryColumns))
	for _, row := range r.rows {
		e := &row.eval
		if e.Language != language || !e.Completed() {
			continue
		}
		scores = append(scores, e.OverallScore)
		for _, c := range categoryColumns {
			v, _ := e.CategoryScore(c)
			sums[c] += v
		}
	}
	if len(scores) == 0 {
		return stats, nil
	}

	n := float64(len(scores))
	lo, hi, total := scores[0], scores[0], 0.0
	for _, s := range scores {
		total += s
		lo = min(lo, s)
		hi = max(hi, s)
	}
	stats.Count = int64(len(scores))
	stats.Average = total / n
	stats.Min = &lo
	stats.Max = &hi
	for _, c := range categoryColumns {
		stats.CategoryAverages[c] = sums[c] / n
	}
	gradeDistribution(stats, scores)
	return stats, nil
}

func (r *MemoryEvaluationRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for key := range r.rows {
		if key.projectID == projectID {
			delete(r.rows, key)
			n++
		}
	}
	return n, nil
}

func compareField(a, b *model.Evaluation, field string) int {
	switch field {
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "evaluated_at":
		return a.EvaluatedAt.Compare(b.EvaluatedAt)
	case "overall_score":
		return compareFloat(a.OverallScore, b.OverallScore)
	}
	av, _ := a.CategoryScore(field)
	bv, _ := b.CategoryScore(field)
	return compareFloat(av, bv)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cloneEvaluation(e *model.Evaluation) model.Evaluation {
	out := *e
	out.CategoryScores = maps.Clone(e.CategoryScores)
	out.Evidence = maps.Clone(e.Evidence)
	out.RubricSnapshot = maps.Clone(e.RubricSnapshot)
	return out
}
