package dto

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/fadilmartias/project-evaluator/internal/model"
	"github.com/fadilmartias/project-evaluator/internal/rubric"
	"github.com/fadilmartias/project-evaluator/internal/scoring"
)

type EvaluationDTO struct {
	ID             uuid.UUID         `json:"id"`
	ProjectID      uuid.UUID         `json:"project_id"`
	Language       string            `json:"language"`
	Status         string            `json:"status"` // "completed" or "failed"
	Error          string            `json:"error,omitempty"`
	OverallScore   float64           `json:"overall_score"`
	Grade          scoring.Grade     `json:"grade,omitempty"`
	CategoryScores map[string]any    `json:"category_scores"`
	Evidence       datatypes.JSONMap `json:"evidence,omitempty"`
	RubricSnapshot datatypes.JSONMap `json:"rubric_snapshot,omitempty"`
	EvaluatedAt    time.Time         `json:"evaluated_at"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// FromEvaluation maps a stored record to its API shape. Failed records carry
// no grade.
func FromEvaluation(e *model.Evaluation) EvaluationDTO {
	out := EvaluationDTO{
		ID:             e.ID,
		ProjectID:      e.ProjectID,
		Language:       e.Language,
		Status:         e.Status,
		Error:          e.Error,
		OverallScore:   e.OverallScore,
		CategoryScores: CategoryColumns(e),
		Evidence:       e.Evidence,
		RubricSnapshot: e.RubricSnapshot,
		EvaluatedAt:    e.EvaluatedAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
	if e.Completed() {
		out.Grade = scoring.GradeFor(e.OverallScore)
	}
	return out
}

// FromEvaluations maps a list, keeping the evidence and snapshot out of it.
func FromEvaluations(items []model.Evaluation) []EvaluationDTO {
	out := make([]EvaluationDTO, 0, len(items))
	for i := range items {
		d := FromEvaluation(&items[i])
		d.Evidence = nil
		d.RubricSnapshot = nil
		out = append(out, d)
	}
	return out
}

// CategoryColumns reads the six score columns in canonical order.
func CategoryColumns(e *model.Evaluation) map[string]any {
	out := make(map[string]any, len(rubric.Categories))
	for _, c := range rubric.Categories {
		v, _ := e.CategoryScore(string(c))
		out[string(c)] = v
	}
	return out
}

type EvaluationSummaryDTO struct {
	ProjectID           uuid.UUID                `json:"project_id"`
	Language            string                   `json:"language"`
	Grade               scoring.Grade            `json:"grade"`
	OverallScore        float64                  `json:"overall_score"`
	CategoryBreakdown   []scoring.CategoryResult `json:"category_breakdown"`
	TopStrengths        []scoring.CategoryResult `json:"top_strengths"`
	AreasForImprovement []scoring.CategoryResult `json:"areas_for_improvement"`
	RubricVersion       string                   `json:"rubric_version,omitempty"`
	EvaluatedAt         time.Time                `json:"evaluated_at"`
}

// SummaryFromEvaluation builds the grade and strengths view of a record.
func SummaryFromEvaluation(e *model.Evaluation) EvaluationSummaryDTO {
	scores := scoring.CategoryScores{}
	for _, c := range rubric.Categories {
		v, _ := e.CategoryScore(string(c))
		scores[c] = v
	}
	all, strengths, improvements := scoring.Breakdown(scores)
	version, _ := e.RubricSnapshot["version"].(string)
	return EvaluationSummaryDTO{
		ProjectID:           e.ProjectID,
		Language:            e.Language,
		Grade:               scoring.GradeFor(e.OverallScore),
		OverallScore:        e.OverallScore,
		CategoryBreakdown:   all,
		TopStrengths:        strengths,
		AreasForImprovement: improvements,
		RubricVersion:       version,
		EvaluatedAt:         e.EvaluatedAt,
	}
}

type RubricDTO struct {
	Language        string         `json:"language"`
	Aliases         []string       `json:"aliases"`
	Version         string         `json:"version"`
	Description     string         `json:"description,omitempty"`
	OverrideWeights bool           `json:"override_weights"`
	Weights         map[string]any `json:"weights"`
	MaxPoints       map[string]any `json:"max_points"`
}

func FromRubric(def *rubric.Definition) RubricDTO {
	weights := map[string]any{}
	maxPoints := map[string]any{}
	w := def.EffectiveWeights()
	for _, c := range rubric.Categories {
		weights[string(c)] = w[c]
		maxPoints[string(c)] = def.MaxPoints(c)
	}
	aliases := def.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	return RubricDTO{
		Language:        def.Language,
		Aliases:         aliases,
		Version:         def.Version,
		Description:     def.Description,
		OverrideWeights: def.OverrideWeights,
		Weights:         weights,
		MaxPoints:       maxPoints,
	}
}

type RunResultDTO struct {
	ProjectID  uuid.UUID      `json:"project_id"`
	Language   string         `json:"language"`
	State      string         `json:"state"` // completed, skipped or failed
	Error      string         `json:"error,omitempty"`
	Evaluation *EvaluationDTO `json:"evaluation,omitempty"`
}
