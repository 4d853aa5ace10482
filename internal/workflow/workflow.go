// Package workflow plans a natural-language task into concrete steps and
// executes each step through the completion provider. Plans and their
// results live in process memory for the session.
package workflow

import (
	"time"
)

// Step is one planned unit of work, bound to a tool from the catalog.
type Step struct {
	ID               int    `json:"id"`
	Tool             string `json:"tool"`
	Action           string `json:"action"`
	InputDescription string `json:"input_description"`
}

// Workflow is a planned (and possibly executed) task. Results maps step IDs
// to their generated output.
type Workflow struct {
	ID        string            `json:"workflow_id"`
	Prompt    string            `json:"prompt"`
	Name      string            `json:"workflow_name"`
	Status    string            `json:"status"`
	Steps     []Step            `json:"steps"`
	Results   map[string]string `json:"results"`
	CreatedAt time.Time         `json:"created_at"`
	ParseNote string            `json:"parse_note,omitempty"`
}

// StepResult is the outcome of executing a single step.
type StepResult struct {
	WorkflowID string    `json:"workflow_id"`
	StepID     int       `json:"step_id"`
	Tool       string    `json:"tool"`
	Action     string    `json:"action"`
	Status     string    `json:"status"`
	Output     string    `json:"output"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	StatusPlanned   = "planned"
	StatusCompleted = "completed"
)
