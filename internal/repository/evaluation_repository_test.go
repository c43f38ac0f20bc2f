package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fadilmartias/project-evaluator/internal/model"
)

func newSQLiteRepository(t *testing.T) *EvaluationRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "evaluations.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite allows one writer; a single connection serializes the pool.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := NewEvaluationRepository(db)
	require.NoError(t, repo.Migrate())
	return repo
}

func createdAt(e *model.Evaluation, offset time.Duration) *model.Evaluation {
	e.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(offset)
	return e
}

func TestEvaluationRepository_ReevaluationOverwritesRow(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)
	project := uuid.New()

	first := completed(project, "python", 70)
	require.NoError(t, repo.Upsert(ctx, first))
	require.NotEqual(t, uuid.Nil, first.ID)

	second := completed(project, "python", 90)
	second.Evidence = map[string]any{"has_readme": true}
	require.NoError(t, repo.Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt), "created_at survives the overwrite")
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	got, err := repo.FindByProjectLanguage(ctx, project, "python")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 90.0, got.OverallScore)
	assert.Equal(t, 90.0, got.CategoryScores["code_structure"])
	assert.Equal(t, true, got.Evidence["has_readme"])

	items, err := repo.ListByProject(ctx, project)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestEvaluationRepository_FailedRunReplacesCompleted(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)
	project := uuid.New()

	require.NoError(t, repo.Upsert(ctx, completed(project, "go", 80)))
	require.NoError(t, repo.Upsert(ctx, &model.Evaluation{ProjectID: project, Language: "go", Status: model.EvaluationStatusFailed, Error: "boom"}))

	got, err := repo.FindByProjectLanguage(ctx, project, "go")
	require.NoError(t, err)
	assert.Equal(t, model.EvaluationStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)

	items, total, err := repo.ListByLanguage(ctx, ListFilter{Language: "go"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestEvaluationRepository_FindMissing(t *testing.T) {
	_, err := newSQLiteRepository(t).FindByProjectLanguage(context.Background(), uuid.New(), "go")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEvaluationRepository_ListByProjectSortsByLanguage(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)
	project := uuid.New()
	for _, lang := range []string{"rust", "go", "python"} {
		require.NoError(t, repo.Upsert(ctx, completed(project, lang, 60)))
	}
	require.NoError(t, repo.Upsert(ctx, completed(uuid.New(), "go", 10)))

	items, err := repo.ListByProject(ctx, project)
	require.NoError(t, err)
	var langs []string
	for _, e := range items {
		langs = append(langs, e.Language)
	}
	assert.Equal(t, []string{"go", "python", "rust"}, langs)
}

func TestEvaluationRepository_ListFiltersByScoreRange(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)
	for i, s := range []float64{95, 72, 69, 81} {
		require.NoError(t, repo.Upsert(ctx, createdAt(completed(uuid.New(), "python", s), time.Duration(i)*time.Second)))
	}
	require.NoError(t, repo.Upsert(ctx, completed(uuid.New(), "go", 75)))

	lo, hi := 70.0, 100.0
	items, total, err := repo.ListByLanguage(ctx, ListFilter{Language: "python", MinScore: &lo, MaxScore: &hi, SortDesc: true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	var scores []float64
	for _, e := range items {
		scores = append(scores, e.OverallScore)
	}
	assert.Equal(t, []float64{95, 81, 72}, scores)

	items, total, err = repo.ListByLanguage(ctx, ListFilter{Language: "python", SortDesc: true, Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, items, 2)
	assert.Equal(t, 81.0, items[0].OverallScore)
	assert.Equal(t, 72.0, items[1].OverallScore)

	items, _, err = repo.ListByLanguage(ctx, ListFilter{Language: "python", SortField: "testing"})
	require.NoError(t, err)
	assert.Equal(t, 34.5, items[0].Testing)
}

func TestEvaluationRepository_TiesBreakByCreationThenID(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)

	scores := []float64{60, 95, 80, 95}
	ids := make([]uuid.UUID, len(scores))
	for i, s := range scores {
		e := createdAt(completed(uuid.New(), "go", s), time.Duration(i)*time.Second)
		require.NoError(t, repo.Upsert(ctx, e))
		ids[i] = e.ID
	}

	items, total, err := repo.ListByLanguage(ctx, ListFilter{Language: "go", SortDesc: true, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, items, 2)
	assert.Equal(t, ids[1], items[0].ID, "earlier evaluation wins the tie")
	assert.Equal(t, ids[3], items[1].ID)

	items, _, err = repo.ListByLanguage(ctx, ListFilter{Language: "go", SortDesc: true, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 80.0, items[2].OverallScore)

	// Same score and same created_at fall back to id order.
	a := createdAt(completed(uuid.New(), "zig", 50), 0)
	b := createdAt(completed(uuid.New(), "zig", 50), 0)
	require.NoError(t, repo.Upsert(ctx, a))
	require.NoError(t, repo.Upsert(ctx, b))
	want := []uuid.UUID{a.ID, b.ID}
	if b.ID.String() < a.ID.String() {
		want = []uuid.UUID{b.ID, a.ID}
	}
	for range 5 {
		items, _, err = repo.ListByLanguage(ctx, ListFilter{Language: "zig", SortDesc: true})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, want, []uuid.UUID{items[0].ID, items[1].ID})
	}
}

func TestEvaluationRepository_StatsWithoutEvaluations(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)
	require.NoError(t, repo.Upsert(ctx, &model.Evaluation{ProjectID: uuid.New(), Language: "rust", Status: model.EvaluationStatusFailed}))

	stats, err := repo.Stats(ctx, "rust")
	require.NoError(t, err)
	assert.Equal(t, "rust", stats.Language)
	assert.EqualValues(t, 0, stats.Count)
	assert.Zero(t, stats.Average)
	assert.Nil(t, stats.Min)
	assert.Nil(t, stats.Max)
	assert.Len(t, stats.CategoryAverages, 6)
	assert.Len(t, stats.GradeDistribution, 5)
}

func TestEvaluationRepository_Stats(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)
	for _, s := range []float64{95, 85, 55} {
		require.NoError(t, repo.Upsert(ctx, completed(uuid.New(), "python", s)))
	}
	require.NoError(t, repo.Upsert(ctx, &model.Evaluation{ProjectID: uuid.New(), Language: "python", Status: model.EvaluationStatusFailed}))
	require.NoError(t, repo.Upsert(ctx, completed(uuid.New(), "go", 10)))

	stats, err := repo.Stats(ctx, "python")
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Count)
	assert.InDelta(t, 78.333, stats.Average, 0.001)
	require.NotNil(t, stats.Min)
	require.NotNil(t, stats.Max)
	assert.Equal(t, 55.0, *stats.Min)
	assert.Equal(t, 95.0, *stats.Max)
	assert.InDelta(t, 39.1667, stats.CategoryAverages["testing"], 0.001)
	assert.EqualValues(t, 1, stats.GradeDistribution["A"])
	assert.EqualValues(t, 1, stats.GradeDistribution["B"])
	assert.EqualValues(t, 1, stats.GradeDistribution["F"])
}

func TestEvaluationRepository_DeleteByProject(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)
	project := uuid.New()
	other := uuid.New()
	require.NoError(t, repo.Upsert(ctx, completed(project, "go", 1)))
	require.NoError(t, repo.Upsert(ctx, completed(project, "rust", 1)))
	require.NoError(t, repo.Upsert(ctx, completed(other, "go", 1)))

	n, err := repo.DeleteByProject(ctx, project)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = repo.DeleteByProject(ctx, project)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repo.FindByProjectLanguage(ctx, other, "go")
	assert.NoError(t, err)
}

func TestEvaluationRepository_ConcurrentUpsertsKeepOneRow(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)
	project := uuid.New()

	const writers = 16
	ids := make([]uuid.UUID, writers)
	var g errgroup.Group
	for i := range writers {
		g.Go(func() error {
			e := completed(project, "go", float64(50+i))
			if err := repo.Upsert(ctx, e); err != nil {
				return err
			}
			ids[i] = e.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	items, err := repo.ListByProject(ctx, project)
	require.NoError(t, err)
	require.Len(t, items, 1)
	for _, id := range ids {
		assert.Equal(t, items[0].ID, id)
	}
}
