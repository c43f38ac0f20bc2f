package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EvaluationStatusCompleted = "completed"
	EvaluationStatusFailed    = "failed"
)

// Evaluation is one scoring run for a (project, language) pair. The pair is
// unique; re-evaluating overwrites the row.
type Evaluation struct {
	ID                   uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID            uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_evaluations_project_language,priority:1" json:"project_id"`
	Language             string            `gorm:"type:varchar(32);not null;uniqueIndex:idx_evaluations_project_language,priority:2;index:idx_evaluations_language_score,priority:1" json:"language"`
	Status               string            `gorm:"type:varchar(20);not null" json:"status"` // "completed" or "failed"
	Error                string            `gorm:"type:text" json:"error,omitempty"`
	OverallScore         float64           `gorm:"type:float;index:idx_evaluations_language_score,priority:2" json:"overall_score"`
	CodeStructure        float64           `gorm:"type:float" json:"code_structure"`
	Testing              float64           `gorm:"type:float" json:"testing"`
	Documentation        float64           `gorm:"type:float" json:"documentation"`
	DependencyManagement float64           `gorm:"type:float" json:"dependency_management"`
	ProjectOrganization  float64           `gorm:"type:float" json:"project_organization"`
	BestPractices        float64           `gorm:"type:float" json:"best_practices"`
	CategoryScores       datatypes.JSONMap `gorm:"type:jsonb" json:"category_scores"`
	Evidence             datatypes.JSONMap `gorm:"type:jsonb" json:"evidence"`
	RubricSnapshot       datatypes.JSONMap `gorm:"type:jsonb" json:"rubric_snapshot"`
	EvaluatedAt          time.Time         `json:"evaluated_at"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

func (e *Evaluation) TableName() string {
	return "evaluations"
}

func (e *Evaluation) Completed() bool {
	return e.Status == EvaluationStatusCompleted
}

// CategoryScore returns the score column for a category name.
func (e *Evaluation) CategoryScore(category string) (float64, bool) {
	switch category {
	case "code_structure":
		return e.CodeStructure, true
	case "testing":
		return e.Testing, true
	case "documentation":
		return e.Documentation, true
	case "dependency_management":
		return e.DependencyManagement, true
	case "project_organization":
		return e.ProjectOrganization, true
	case "best_practices":
		return e.BestPractices, true
	}
	return 0, false
}

// SetCategoryScore writes the score column for a category name.
func (e *Evaluation) SetCategoryScore(category string, score float64) {
	switch category {
	case "code_structure":
		e.CodeStructure = score
	case "testing":
		e.Testing = score
	case "documentation":
		e.Documentation = score
	case "dependency_management":
		e.DependencyManagement = score
	case "project_organization":
		e.ProjectOrganization = score
	case "best_practices":
		e.BestPractices = score
	}
}

// LanguageStats aggregates completed evaluations for one language. Min and
// Max are nil when Count is zero.
type LanguageStats struct {
	Language          string             `json:"language"`
	Count             int64              `json:"count"`
	Average           float64            `json:"average"`
	Min               *float64           `json:"min"`
	Max               *float64           `json:"max"`
	CategoryAverages  map[string]float64 `json:"category_averages"`
	GradeDistribution map[string]int64   `json:"grade_distribution"`
}
