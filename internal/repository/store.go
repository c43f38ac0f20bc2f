package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/fadilmartias/project-evaluator/internal/model"
	"github.com/fadilmartias/project-evaluator/internal/scoring"
)

var ErrNotFound = errors.New("evaluation not found")

// EvaluationStore persists evaluations keyed by (project, language).
type EvaluationStore interface {
	// Upsert atomically inserts or replaces the row for e's key and
	// refreshes e with the stored values (id, created_at).
	Upsert(ctx context.Context, e *model.Evaluation) error
	FindByProjectLanguage(ctx context.Context, projectID uuid.UUID, language string) (*model.Evaluation, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Evaluation, error)
	// ListByLanguage returns completed evaluations matching f, plus the
	// total match count before pagination.
	ListByLanguage(ctx context.Context, f ListFilter) ([]model.Evaluation, int64, error)
	Stats(ctx context.Context, language string) (*model.LanguageStats, error)
	DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
}

type ListFilter struct {
	Language  string
	MinScore  *float64
	MaxScore  *float64
	SortField string
	SortDesc  bool
	Offset    int
	Limit     int // 0 means no limit
}

const DefaultSortField = "overall_score"

// SortFields are the columns a list may be ordered by.
var SortFields = map[string]struct{}{
	"overall_score":         {},
	"created_at":            {},
	"evaluated_at":          {},
	"code_structure":        {},
	"testing":               {},
	"documentation":         {},
	"dependency_management": {},
	"project_organization":  {},
	"best_practices":        {},
}

func (f ListFilter) sortField() string {
	if _, ok := SortFields[f.SortField]; ok {
		return f.SortField
	}
	return DefaultSortField
}

func (f ListFilter) matches(e *model.Evaluation) bool {
	if e.Language != f.Language || !e.Completed() {
		return false
	}
	if f.MinScore != nil && e.OverallScore < *f.MinScore {
		return false
	}
	if f.MaxScore != nil && e.OverallScore > *f.MaxScore {
		return false
	}
	return true
}

var categoryColumns = []string{
	"code_structure", "testing", "documentation",
	"dependency_management", "project_organization", "best_practices",
}

func emptyStats(language string) *model.LanguageStats {
	stats := &model.LanguageStats{
		Language:          language,
		CategoryAverages:  map[string]float64{},
		GradeDistribution: map[string]int64{},
	}
	for _, c := range categoryColumns {
		stats.CategoryAverages[c] = 0
	}
	for _, g := range scoring.Grades {
		stats.GradeDistribution[string(g)] = 0
	}
	return stats
}

func gradeDistribution(stats *model.LanguageStats, scores []float64) {
	for _, s := range scores {
		stats.GradeDistribution[string(scoring.GradeFor(s))]++
	}
}

func paginate(items []model.Evaluation, offset, limit int) []model.Evaluation {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []model.Evaluation{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortByLanguage(items []model.Evaluation) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Language < items[j].Language })
}
