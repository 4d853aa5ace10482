package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/mandelbrot-ai/neural-engine/internal/llm"
	"github.com/mandelbrot-ai/neural-engine/internal/workflow"
)

type stubGenerator struct {
	response string
}

func (s *stubGenerator) CompleteWithOptions(context.Context, []llm.Message, llm.Options) (string, []string) {
	return s.response, nil
}

func TestPlanEndpoint(t *testing.T) {
	h := &WorkflowsHandler{Engine: workflow.NewEngine(&stubGenerator{
		response: `{"workflow_name": "Demo", "steps": [{"id": 1, "tool": "ai.brainstorm", "action": "think"}]}`,
	})}
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/plan", strings.NewReader(`{"prompt": "do something"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.plan(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)

	var wf workflow.Workflow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wf))
	require.Equal(t, "Demo", wf.Name)
	require.Len(t, wf.Steps, 1)
	require.Equal(t, workflow.StatusPlanned, wf.Status)
}

func TestPlanEndpointRequiresPrompt(t *testing.T) {
	h := &WorkflowsHandler{Engine: workflow.NewEngine(&stubGenerator{response: "{}"})}
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/plan", strings.NewReader(`{"prompt": ""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.plan(e.NewContext(req, rec))
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, err.(*echo.HTTPError).Code)
}

func TestPlanEndpointToleratesMalformedModelOutput(t *testing.T) {
	h := &WorkflowsHandler{Engine: workflow.NewEngine(&stubGenerator{response: "not json at all"})}
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/plan", strings.NewReader(`{"prompt": "anything"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.plan(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)

	var wf workflow.Workflow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wf))
	require.Len(t, wf.Steps, 1)
	require.NotEmpty(t, wf.ParseNote)
}

func TestWorkflowNotFound(t *testing.T) {
	h := &WorkflowsHandler{Engine: workflow.NewEngine(&stubGenerator{response: "{}"})}
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/workflows/nope", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("nope")

	err := h.get(ctx)
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, err.(*echo.HTTPError).Code)
}

func TestToolsEndpoint(t *testing.T) {
	h := &WorkflowsHandler{Engine: workflow.NewEngine(&stubGenerator{response: "{}"})}
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.tools(e.NewContext(req, rec)))

	var resp struct {
		Count      int                 `json:"count"`
		Categories map[string][]string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, workflow.ToolCount(), resp.Count)
	require.NotEmpty(t, resp.Categories)
}
