package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"

	"github.com/fadilmartias/project-evaluator/internal/dto"
	"github.com/fadilmartias/project-evaluator/internal/model"
	"github.com/fadilmartias/project-evaluator/internal/repository"
	"github.com/fadilmartias/project-evaluator/internal/service"
	"github.com/fadilmartias/project-evaluator/internal/usecase"
	"github.com/fadilmartias/project-evaluator/internal/util"
)

type EvaluationHandler struct {
	evaluations *usecase.EvaluationUsecase
	queries     *usecase.QueryUsecase
}

func NewEvaluationHandler(evaluations *usecase.EvaluationUsecase, queries *usecase.QueryUsecase) *EvaluationHandler {
	return &EvaluationHandler{evaluations: evaluations, queries: queries}
}

func (h *EvaluationHandler) RegisterRoutes(router fiber.Router) {
	projects := router.Group("/projects/:projectId/evaluations")
	projects.Post("/", h.Submit)
	projects.Post("/sync", h.EvaluateSync)
	projects.Post("/regenerate", h.Regenerate)
	projects.Delete("/", h.DeleteProject)
	projects.Get("/", h.AllForProject)
	projects.Get("/:language", h.Detail)
	projects.Get("/:language/summary", h.Summary)

	evaluations := router.Group("/evaluations/:language")
	evaluations.Get("/", h.List)
	evaluations.Get("/top", h.Top)
	evaluations.Get("/stats", h.Stats)

	router.Get("/jobs/:id", h.JobStatus)
}

func (h *EvaluationHandler) Submit(c *fiber.Ctx) error {
	m, err := h.manifest(c)
	if err != nil {
		return h.fail(c, "invalid request", err)
	}

	jobs, err := h.evaluations.Submit(m)
	if err != nil {
		if errors.Is(err, usecase.ErrQueueFull) {
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusServiceUnavailable,
				Message: "evaluation queue is full, retry later",
				Details: fiber.Map{"jobs": jobs},
			}, err)
		}
		return h.fail(c, "failed to submit evaluation", err)
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusAccepted,
		Message: "Success submit evaluation",
		Data:    jobs,
	})
}

func (h *EvaluationHandler) EvaluateSync(c *fiber.Ctx) error {
	m, err := h.manifest(c)
	if err != nil {
		return h.fail(c, "invalid request", err)
	}
	results := h.evaluations.EvaluateProject(c.UserContext(), m)
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success evaluate project",
		Data:    runResults(results),
	})
}

func (h *EvaluationHandler) Regenerate(c *fiber.Ctx) error {
	projectID, err := parseProjectID(c)
	if err != nil {
		return h.fail(c, "invalid request", err)
	}
	var languages []string
	if q := utils.CopyString(c.Query("language")); q != "" {
		for _, l := range strings.Split(q, ",") {
			if l = strings.TrimSpace(l); l != "" {
				languages = append(languages, l)
			}
		}
	}

	results, err := h.evaluations.Regenerate(c.UserContext(), projectID, languages...)
	if err != nil {
		return h.fail(c, "failed to regenerate evaluations", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success regenerate evaluations",
		Data:    runResults(results),
	})
}

func (h *EvaluationHandler) DeleteProject(c *fiber.Ctx) error {
	projectID, err := parseProjectID(c)
	if err != nil {
		return h.fail(c, "invalid request", err)
	}
	n, err := h.evaluations.DeleteProject(c.UserContext(), projectID)
	if err != nil {
		return h.fail(c, "failed to delete evaluations", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success delete evaluations",
		Data:    fiber.Map{"deleted": n},
	})
}

func (h *EvaluationHandler) AllForProject(c *fiber.Ctx) error {
	projectID, err := parseProjectID(c)
	if err != nil {
		return h.fail(c, "invalid request", err)
	}
	items, err := h.queries.AllForProject(c.UserContext(), projectID)
	if err != nil {
		return h.fail(c, "failed to get evaluations", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get evaluations",
		Data:    dto.FromEvaluations(items),
	})
}

func (h *EvaluationHandler) Detail(c *fiber.Ctx) error {
	projectID, err := parseProjectID(c)
	if err != nil {
		return h.fail(c, "invalid request", err)
	}
	e, err := h.queries.Detail(c.UserContext(), projectID, language(c))
	if err != nil {
		return h.fail(c, "evaluation not found", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get evaluation",
		Data:    dto.FromEvaluation(e),
	})
}

func (h *EvaluationHandler) Summary(c *fiber.Ctx) error {
	projectID, err := parseProjectID(c)
	if err != nil {
		return h.fail(c, "invalid request", err)
	}
	summary, err := h.queries.Summary(c.UserContext(), projectID, language(c))
	if err != nil {
		return h.fail(c, "evaluation not found", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get evaluation summary",
		Data:    summary,
	})
}

func (h *EvaluationHandler) List(c *fiber.Ctx) error {
	fields := map[string]string{}
	q := usecase.ListQuery{
		Language: language(c),
		MinScore: floatQuery(c, "min_score", fields),
		MaxScore: floatQuery(c, "max_score", fields),
		Sort:     utils.CopyString(c.Query("sort")),
		Order:    strings.ToLower(c.Query("order")),
		Page:     intQuery(c, "page", fields),
		PageSize: intQuery(c, "page_size", fields),
	}
	if len(fields) > 0 {
		return h.fail(c, "invalid query", &usecase.QueryError{Fields: fields})
	}

	res, err := h.queries.List(c.UserContext(), q)
	if err != nil {
		return h.fail(c, "failed to list evaluations", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message:    "Success list evaluations",
		Data:       dto.FromEvaluations(res.Items),
		Pagination: res.Pagination,
	})
}

func (h *EvaluationHandler) Top(c *fiber.Ctx) error {
	fields := map[string]string{}
	limit := intQuery(c, "limit", fields)
	if len(fields) > 0 {
		return h.fail(c, "invalid query", &usecase.QueryError{Fields: fields})
	}
	items, err := h.queries.Top(c.UserContext(), language(c), limit)
	if err != nil {
		return h.fail(c, "failed to get top evaluations", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get top evaluations",
		Data:    dto.FromEvaluations(items),
	})
}

func (h *EvaluationHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.queries.Stats(c.UserContext(), language(c))
	if err != nil {
		return h.fail(c, "failed to get evaluation stats", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get evaluation stats",
		Data:    stats,
	})
}

func (h *EvaluationHandler) JobStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return h.fail(c, "invalid request", &requestError{Message: "invalid job id", Err: err})
	}
	job, err := h.evaluations.JobStatus(id)
	if err != nil {
		return h.fail(c, "job not found", err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get job status",
		Data:    job,
	})
}

// requestError is a malformed request; it renders as 400.
type requestError struct {
	Message string
	Details any
	Err     error
}

func (e *requestError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *requestError) Unwrap() error { return e.Err }

// manifest decodes and validates the request body. The path project id wins
// over an empty body id; a different non-empty one is rejected.
func (h *EvaluationHandler) manifest(c *fiber.Ctx) (*model.Manifest, error) {
	id, err := parseProjectID(c)
	if err != nil {
		return nil, err
	}

	var m model.Manifest
	if err := c.BodyParser(&m); err != nil {
		return nil, &requestError{Message: "invalid request body", Err: err}
	}
	if m.ProjectID != uuid.Nil && m.ProjectID != id {
		return nil, &requestError{Message: "project_id does not match the path"}
	}
	m.ProjectID = id

	if err := m.Validate(); err != nil {
		formErr := util.NewValidationFormError("invalid manifest", err)
		return nil, &requestError{Message: formErr.Message, Details: formErr.Errors, Err: err}
	}
	return &m, nil
}

// language returns the :language path parameter detached from fiber's
// request buffer; it may end up in cache keys and log records.
func language(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("language"))
}

func parseProjectID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("projectId"))
	if err != nil {
		return uuid.Nil, &requestError{Message: "invalid project id", Err: err}
	}
	return id, nil
}

func (h *EvaluationHandler) fail(c *fiber.Ctx, message string, err error) error {
	params := util.ErrorResponseFormat{Code: fiber.StatusInternalServerError, Message: message}
	var qe *usecase.QueryError
	var re *requestError
	switch {
	case errors.As(err, &re):
		params.Code = fiber.StatusBadRequest
		params.Message = re.Message
		params.Details = re.Details
	case errors.As(err, &qe):
		params.Code = fiber.StatusBadRequest
		params.Message = "invalid query"
		params.Details = qe.Fields
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, usecase.ErrJobNotFound),
		errors.Is(err, service.ErrManifestNotFound):
		params.Code = fiber.StatusNotFound
	case errors.Is(err, usecase.ErrQueueFull),
		errors.Is(err, usecase.ErrNoDispatcher),
		errors.Is(err, usecase.ErrNoManifestStore):
		params.Code = fiber.StatusServiceUnavailable
	}
	return util.ErrorResponse(c, params, err)
}

func runResults(results []usecase.RunResult) []dto.RunResultDTO {
	out := make([]dto.RunResultDTO, 0, len(results))
	for _, r := range results {
		item := dto.RunResultDTO{
			ProjectID: r.ProjectID,
			Language:  r.Language,
			State:     string(r.State),
		}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		if r.Evaluation != nil {
			e := dto.FromEvaluation(r.Evaluation)
			e.Evidence = nil
			item.Evaluation = &e
		}
		out = append(out, item)
	}
	return out
}

func floatQuery(c *fiber.Ctx, key string, fields map[string]string) *float64 {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		fields[key] = "must be a number"
		return nil
	}
	return &v
}

func intQuery(c *fiber.Ctx, key string, fields map[string]string) int {
	raw := c.Query(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		fields[key] = "must be an integer"
		return 0
	}
	return v
}
