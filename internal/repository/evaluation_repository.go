package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fadilmartias/project-evaluator/internal/model"
)

// upsertColumns are overwritten on conflict; id and created_at survive.
var upsertColumns = []string{
	"status", "error", "overall_score",
	"code_structure", "testing", "documentation",
	"dependency_management", "project_organization", "best_practices",
	"category_scores", "evidence", "rubric_snapshot",
	"evaluated_at", "updated_at",
}

type EvaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{db}
}

func (r *EvaluationRepository) Migrate() error {
	return r.db.AutoMigrate(&model.Evaluation{})
}

func (r *EvaluationRepository) Upsert(ctx context.Context, e *model.Evaluation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "language"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).Create(e).Error
		if err != nil {
			return fmt.Errorf("upsert evaluation: %w", err)
		}
		// Reload into a fresh value: on conflict e.ID is not the stored id, and
		// gorm would add it to the WHERE clause.
		var stored model.Evaluation
		if err := tx.Where("project_id = ? AND language = ?", e.ProjectID, e.Language).First(&stored).Error; err != nil {
			return fmt.Errorf("reload evaluation: %w", err)
		}
		*e = stored
		return nil
	})
}

func (r *EvaluationRepository) FindByProjectLanguage(ctx context.Context, projectID uuid.UUID, language string) (*model.Evaluation, error) {
	var e model.Evaluation
	err := r.db.WithContext(ctx).First(&e, "project_id = ? AND language = ?", projectID, language).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EvaluationRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Evaluation, error) {
	var items []model.Evaluation
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("language ASC").
		Find(&items).Error
	return items, err
}

func (r *EvaluationRepository) ListByLanguage(ctx context.Context, f ListFilter) ([]model.Evaluation, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Evaluation{}).
		Where("language = ? AND status = ?", f.Language, model.EvaluationStatusCompleted)
	if f.MinScore != nil {
		q = q.Where("overall_score >= ?", *f.MinScore)
	}
	if f.MaxScore != nil {
		q = q.Where("overall_score <= ?", *f.MaxScore)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: f.sortField()}, Desc: f.SortDesc}).
		Order("created_at ASC").
		Order("id ASC")
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var items []model.Evaluation
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

type statsRow struct {
	Count                int64
	Average              sql.NullFloat64
	Min                  sql.NullFloat64
	Max                  sql.NullFloat64
	CodeStructure        sql.NullFloat64
	Testing              sql.NullFloat64
	Documentation        sql.NullFloat64
	DependencyManagement sql.NullFloat64
	ProjectOrganization  sql.NullFloat64
	BestPractices        sql.NullFloat64
}

func (r *EvaluationRepository) Stats(ctx context.Context, language string) (*model.LanguageStats, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Evaluation{}).
			Where("language = ? AND status = ?", language, model.EvaluationStatusCompleted)
	}

	var row statsRow
	err := base().Select(`COUNT(*) AS count,
		AVG(overall_score) AS average,
		MIN(overall_score) AS min,
		MAX(overall_score) AS max,
		AVG(code_structure) AS code_structure,
		AVG(testing) AS testing,
		AVG(documentation) AS documentation,
		AVG(dependency_management) AS dependency_management,
		AVG(project_organization) AS project_organization,
		AVG(best_practices) AS best_practices`).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("evaluation stats: %w", err)
	}

	stats := emptyStats(language)
	stats.Count = row.Count
	if row.Count == 0 {
		return stats, nil
	}
	stats.Average = row.Average.Float64
	stats.Min = nullableFloat(row.Min)
	stats.Max = nullableFloat(row.Max)
	stats.CategoryAverages["code_structure"] = row.CodeStructure.Float64
	stats.CategoryAverages["testing"] = row.Testing.Float64
	stats.CategoryAverages["documentation"] = row.Documentation.Float64
	stats.CategoryAverages["dependency_management"] = row.DependencyManagement.Float64
	stats.CategoryAverages["project_organization"] = row.ProjectOrganization.Float64
	stats.CategoryAverages["best_practices"] = row.BestPractices.Float64

	var scores []float64
	if err := base().Pluck("overall_score", &scores).Error; err != nil {
		return nil, fmt.Errorf("evaluation grade distribution: %w", err)
	}
	gradeDistribution(stats, scores)
	return stats, nil
}

func (r *EvaluationRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&model.Evaluation{})
	return res.RowsAffected, res.Error
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
