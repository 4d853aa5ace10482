package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mandelbrot-ai/neural-engine/internal/workflow"
)

// WorkflowsHandler exposes the planner/executor engine.
type WorkflowsHandler struct {
	Engine *workflow.Engine
}

func (h *WorkflowsHandler) Register(g *echo.Group) {
	g.POST("/plan", h.plan)
	g.POST("/execute-step", h.executeStep)
	g.POST("/execute-workflow", h.executeWorkflow)
	g.GET("/workflows/:id", h.get)
	g.GET("/tools", h.tools)
}

func (h *WorkflowsHandler) plan(c echo.Context) error {
	var req planRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt required")
	}
	plansTotal.Inc()
	return c.JSON(http.StatusOK, h.Engine.Plan(c.Request().Context(), req.Prompt))
}

func (h *WorkflowsHandler) executeStep(c echo.Context) error {
	var req executeStepRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result := h.Engine.ExecuteStep(c.Request().Context(), req.WorkflowID, req.StepID, req.Tool, req.Action, req.Context)
	return c.JSON(http.StatusOK, result)
}

func (h *WorkflowsHandler) executeWorkflow(c echo.Context) error {
	var req planRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt required")
	}
	wf, results := h.Engine.ExecuteAll(c.Request().Context(), req.Prompt)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"workflow_id":   wf.ID,
		"prompt":        wf.Prompt,
		"workflow_name": wf.Name,
		"status":        wf.Status,
		"plan":          wf.Steps,
		"results":       results,
	})
}

func (h *WorkflowsHandler) get(c echo.Context) error {
	wf, ok := h.Engine.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "workflow not found")
	}
	return c.JSON(http.StatusOK, wf)
}

func (h *WorkflowsHandler) tools(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":      workflow.ToolCount(),
		"categories": workflow.ToolCategories,
	})
}
