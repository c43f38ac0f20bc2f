package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fadilmartias/project-evaluator/internal/dto"
	"github.com/fadilmartias/project-evaluator/internal/rubric"
	"github.com/fadilmartias/project-evaluator/internal/util"
)

type RubricHandler struct {
	rubrics *rubric.Registry
}

func NewRubricHandler(rubrics *rubric.Registry) *RubricHandler {
	return &RubricHandler{rubrics: rubrics}
}

func (h *RubricHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/rubrics", h.List)
	router.Get("/rubrics/:language", h.Show)
}

func (h *RubricHandler) List(c *fiber.Ctx) error {
	defs := h.rubrics.Definitions()
	out := make([]dto.RubricDTO, 0, len(defs))
	for _, def := range defs {
		out = append(out, dto.FromRubric(def))
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success list rubrics",
		Data:    out,
	})
}

// Show returns the full rubric snapshot, rules included.
func (h *RubricHandler) Show(c *fiber.Ctx) error {
	def, ok := h.rubrics.Lookup(c.Params("language"))
	if !ok {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusNotFound,
			Message: "rubric not found",
		})
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get rubric",
		Data:    def.Snapshot(),
		Meta:    dto.FromRubric(def),
	})
}
