package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mandelbrot-ai/neural-engine/internal/llm"
)

const (
	planTemperature = 0.3
	execTemperature = 0.4
	// interStepDelay spaces sequential executions to stay under provider
	// rate limits.
	interStepDelay = 500 * time.Millisecond
	// resultExcerptLen bounds each prior result inside the executor
	// context.
	resultExcerptLen = 200
)

// Generator is the completion surface the engine needs. *llm.Client
// satisfies it.
type Generator interface {
	CompleteWithOptions(ctx context.Context, messages []llm.Message, opts llm.Options) (string, []string)
}

// Engine plans tasks into steps and executes them one at a time.
type Engine struct {
	llm    Generator
	logger *log.Logger

	mu        sync.Mutex
	workflows map[string]*Workflow
}

func NewEngine(gen Generator) *Engine {
	return &Engine{
		llm:       gen,
		logger:    log.New(log.Writer(), "[WORKFLOW] ", log.LstdFlags),
		workflows: make(map[string]*Workflow),
	}
}

func plannerPrompt() string {
	return fmt.Sprintf(`You are the Neural Engine Planner, an AI that breaks down complex business tasks into structured execution plans.

When given a task:
1. Analyze the intent
2. Break it into 3-8 concrete, actionable steps
3. Assign each step the best tool from the list below
4. ONLY use tools from the provided list. Do not make up tool names.

AVAILABLE TOOLS (%d total across %d categories):

%s
RESPOND WITH VALID JSON ONLY. No markdown, no explanation. Just this format:
{
  "workflow_name": "Short descriptive name",
  "steps": [
    {
      "id": 1,
      "tool": "tool.name",
      "action": "What this step does",
      "input_description": "What context/data this step needs"
    }
  ]
}`, ToolCount(), len(ToolCategories), PlannerToolSummary())
}

const executorPromptTemplate = `You are the Neural Engine Executor, an AI that produces REAL, USABLE output for each step of a workflow.

Your outputs must be production-ready: actual content the user can copy and use immediately, not placeholders.

WORKFLOW CONTEXT:
%s

CURRENT STEP:
Tool: %s
Action: %s

RULES:
1. Produce the ACTUAL deliverable for this step
2. If drafting an email, write the FULL email with subject line, greeting, body, and signature
3. If writing content, write the COMPLETE piece
4. If generating code, write WORKING code with comments
5. If analyzing, provide SPECIFIC insights with data points
6. Be professional, concise, and immediately useful
7. Format the output with markdown headers and sections

Produce the output now:`

// Plan asks the planner model for a step breakdown. Malformed planner
// output never fails the call: it degrades to a single-step default plan.
func (e *Engine) Plan(ctx context.Context, prompt string) *Workflow {
	temp := planTemperature
	raw, failures := e.llm.CompleteWithOptions(ctx, []llm.Message{
		{Role: "system", Content: plannerPrompt()},
		{Role: "user", Content: prompt},
	}, llm.Options{Temperature: &temp, MaxTokens: 2000})
	if len(failures) > 0 {
		e.logger.Printf("planner completion degraded after %d failed attempts", len(failures))
	}

	wf := &Workflow{
		ID:        uuid.NewString()[:8],
		Prompt:    prompt,
		Status:    StatusPlanned,
		Results:   make(map[string]string),
		CreatedAt: time.Now().UTC(),
	}

	var plan struct {
		WorkflowName string `json:"workflow_name"`
		Steps        []Step `json:"steps"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &plan); err != nil {
		e.logger.Printf("planner output was not valid JSON: %v", err)
		wf.Name = "Workflow"
		wf.Steps = []Step{{ID: 1, Tool: "ai.analyze_data", Action: "Process your request", InputDescription: prompt}}
		wf.ParseNote = "AI response was reformatted into a single step"
	} else {
		wf.Name = plan.WorkflowName
		if wf.Name == "" {
			wf.Name = "Untitled Workflow"
		}
		wf.Steps = plan.Steps
	}

	e.mu.Lock()
	e.workflows[wf.ID] = wf
	e.mu.Unlock()

	e.logger.Printf("planned workflow %s with %d steps", wf.ID, len(wf.Steps))
	return wf
}

// ExecuteStep runs one step with the workflow's accumulated context and
// records the output.
func (e *Engine) ExecuteStep(ctx context.Context, workflowID string, stepID int, tool, action, fallbackContext string) StepResult {
	stepContext := fmt.Sprintf("Original prompt: %s", fallbackContext)

	e.mu.Lock()
	wf, ok := e.workflows[workflowID]
	if ok {
		var b strings.Builder
		fmt.Fprintf(&b, "Original prompt: %s\n", wf.Prompt)
		if len(wf.Results) > 0 {
			b.WriteString("Previous step results:\n")
			for id, result := range wf.Results {
				if len(result) > resultExcerptLen {
					result = result[:resultExcerptLen] + "..."
				}
				fmt.Fprintf(&b, "  Step %s: %s\n", id, result)
			}
		}
		stepContext = b.String()
	}
	e.mu.Unlock()

	temp := execTemperature
	output, failures := e.llm.CompleteWithOptions(ctx, []llm.Message{
		{Role: "system", Content: "You are a professional AI assistant that produces real, usable business outputs."},
		{Role: "user", Content: fmt.Sprintf(executorPromptTemplate, stepContext, tool, action)},
	}, llm.Options{Temperature: &temp})
	if len(failures) > 0 {
		e.logger.Printf("executor completion degraded after %d failed attempts", len(failures))
	}

	e.mu.Lock()
	if wf, ok := e.workflows[workflowID]; ok {
		wf.Results[strconv.Itoa(stepID)] = output
	}
	e.mu.Unlock()

	return StepResult{
		WorkflowID: workflowID,
		StepID:     stepID,
		Tool:       tool,
		Action:     action,
		Status:     StatusCompleted,
		Output:     output,
		Timestamp:  time.Now().UTC(),
	}
}

// ExecuteAll plans a prompt and executes every step in order.
func (e *Engine) ExecuteAll(ctx context.Context, prompt string) (*Workflow, []StepResult) {
	wf := e.Plan(ctx, prompt)

	results := make([]StepResult, 0, len(wf.Steps))
	for i, step := range wf.Steps {
		if i > 0 {
			select {
			case <-time.After(interStepDelay):
			case <-ctx.Done():
				return e.snapshot(wf.ID), results
			}
		}
		results = append(results, e.ExecuteStep(ctx, wf.ID, step.ID, step.Tool, step.Action, prompt))
	}

	e.mu.Lock()
	if stored, ok := e.workflows[wf.ID]; ok {
		stored.Status = StatusCompleted
	}
	e.mu.Unlock()

	return e.snapshot(wf.ID), results
}

// Get returns a copy of the workflow, if it exists.
func (e *Engine) Get(id string) (Workflow, bool) {
	wf := e.snapshot(id)
	if wf == nil {
		return Workflow{}, false
	}
	return *wf, true
}

func (e *Engine) snapshot(id string) *Workflow {
	e.mu.Lock()
	defer e.mu.Unlock()
	wf, ok := e.workflows[id]
	if !ok {
		return nil
	}
	cp := *wf
	cp.Steps = append([]Step(nil), wf.Steps...)
	cp.Results = make(map[string]string, len(wf.Results))
	for k, v := range wf.Results {
		cp.Results[k] = v
	}
	return &cp
}

// stripCodeFences removes a surrounding markdown code fence, which models
// add despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
