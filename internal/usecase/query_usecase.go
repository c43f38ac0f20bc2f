package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fadilmartias/project-evaluator/internal/dto"
	"github.com/fadilmartias/project-evaluator/internal/model"
	"github.com/fadilmartias/project-evaluator/internal/repository"
	"github.com/fadilmartias/project-evaluator/internal/response"
	"github.com/fadilmartias/project-evaluator/internal/rubric"
)

const (
	DefaultTopLimit = 10
	MaxTopLimit     = 100
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListQuery filters completed evaluations of one language. Page and PageSize
// both zero means no pagination.
type ListQuery struct {
	Language string   `validate:"required,max=32"`
	MinScore *float64 `validate:"omitempty,gte=0,lte=100"`
	MaxScore *float64 `validate:"omitempty,gte=0,lte=100"`
	Sort     string   `validate:"omitempty,oneof=overall_score created_at evaluated_at code_structure testing documentation dependency_management project_organization best_practices"`
	Order    string   `validate:"omitempty,oneof=asc desc"`
	Page     int      `validate:"gte=0"`
	PageSize int      `validate:"gte=0,lte=100"`
}

type ListResult struct {
	Items      []model.Evaluation
	Pagination *response.Pagination
}

// QueryUsecase serves read-only views over stored evaluations.
type QueryUsecase struct {
	store    repository.EvaluationStore
	rubrics  *rubric.Registry
	validate *validator.Validate
}

func NewQueryUsecase(store repository.EvaluationStore, rubrics *rubric.Registry) *QueryUsecase {
	return &QueryUsecase{
		store:    store,
		rubrics:  rubrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (uc *QueryUsecase) language(l string) string {
	if uc.rubrics == nil {
		return rubric.NormalizeLanguage(l)
	}
	return uc.rubrics.Canonical(l)
}

func (uc *QueryUsecase) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	if err := uc.validateQuery(q); err != nil {
		return nil, err
	}

	f := repository.ListFilter{
		Language:  uc.language(q.Language),
		MinScore:  q.MinScore,
		MaxScore:  q.MaxScore,
		SortField: q.Sort,
		SortDesc:  q.Order != "asc",
	}
	if f.SortField == "" {
		f.SortField = repository.DefaultSortField
	}

	paginated := q.Page > 0 || q.PageSize > 0
	page, pageSize := q.Page, q.PageSize
	if paginated {
		if page == 0 {
			page = 1
		}
		if pageSize == 0 {
			pageSize = DefaultPageSize
		}
		f.Offset = (page - 1) * pageSize
		f.Limit = pageSize
	}

	items, total, err := uc.store.ListByLanguage(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	res := &ListResult{Items: items}
	if paginated {
		res.Pagination = pagination(page, pageSize, total, len(items))
	}
	return res, nil
}

func (uc *QueryUsecase) validateQuery(q ListQuery) error {
	fields := map[string]string{}
	if err := uc.validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &QueryError{Fields: map[string]string{"query": err.Error()}}
		}
		for _, fe := range verrs {
			fields[queryParam(fe.Field())] = fe.Tag()
		}
	}
	if q.MinScore != nil && q.MaxScore != nil && *q.MinScore > *q.MaxScore {
		fields["min_score"] = "must not exceed max_score"
	}
	if len(fields) > 0 {
		return &QueryError{Fields: fields}
	}
	return nil
}

func queryParam(field string) string {
	switch field {
	case "MinScore":
		return "min_score"
	case "MaxScore":
		return "max_score"
	case "PageSize":
		return "page_size"
	case "Sort":
		return "sort"
	case "Order":
		return "order"
	case "Page":
		return "page"
	case "Language":
		return "language"
	}
	return field
}

func pagination(page, pageSize int, total int64, count int) *response.Pagination {
	offset := (page - 1) * pageSize
	p := &response.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: int64(math.Ceil(float64(total) / float64(pageSize))),
		HasMore:    int64(offset+count) < total,
	}
	if count > 0 {
		p.From = offset + 1
		p.To = offset + count
	}
	return p
}

// Top returns the best-scoring evaluations. The limit is clamped to
// [1, MaxTopLimit]; zero means DefaultTopLimit.
func (uc *QueryUsecase) Top(ctx context.Context, language string, limit int) ([]model.Evaluation, error) {
	switch {
	case limit == 0:
		limit = DefaultTopLimit
	case limit < 1:
		limit = 1
	case limit > MaxTopLimit:
		limit = MaxTopLimit
	}
	items, _, err := uc.store.ListByLanguage(ctx, repository.ListFilter{
		Language:  uc.language(language),
		SortField: repository.DefaultSortField,
		SortDesc:  true,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("top evaluations: %w", err)
	}
	return items, nil
}

// Stats aggregates completed evaluations. Averages are rounded to two
// decimals; an empty language yields zero counts and nil min/max.
func (uc *QueryUsecase) Stats(ctx context.Context, language string) (*model.LanguageStats, error) {
	stats, err := uc.store.Stats(ctx, uc.language(language))
	if err != nil {
		return nil, fmt.Errorf("evaluation stats: %w", err)
	}
	stats.Average = round2(stats.Average)
	for k, v := range stats.CategoryAverages {
		stats.CategoryAverages[k] = round2(v)
	}
	return stats, nil
}

// Detail returns the completed evaluation for a project and language.
func (uc *QueryUsecase) Detail(ctx context.Context, projectID uuid.UUID, language string) (*model.Evaluation, error) {
	e, err := uc.store.FindByProjectLanguage(ctx, projectID, uc.language(language))
	if err != nil {
		return nil, err
	}
	if !e.Completed() {
		return nil, repository.ErrNotFound
	}
	return e, nil
}

// Summary condenses a completed evaluation into its grade, per-category
// grades, strengths and areas for improvement.
func (uc *QueryUsecase) Summary(ctx context.Context, projectID uuid.UUID, language string) (*dto.EvaluationSummaryDTO, error) {
	e, err := uc.Detail(ctx, projectID, language)
	if err != nil {
		return nil, err
	}
	summary := dto.SummaryFromEvaluation(e)
	return &summary, nil
}

// AllForProject returns every record of a project, failed ones included,
// ordered by language.
func (uc *QueryUsecase) AllForProject(ctx context.Context, projectID uuid.UUID) ([]model.Evaluation, error) {
	items, err := uc.store.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("project evaluations: %w", err)
	}
	return items, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
