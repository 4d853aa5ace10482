package server

// Request/response shapes for the document and workflow endpoints.

type uploadResponse struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Preview  string `json:"preview"`
}

type chatRequest struct {
	Message      string   `json:"message"`
	ContextFiles []string `json:"context_files"`
}

type chatResponse struct {
	Response    string `json:"response"`
	ContextUsed int    `json:"context_used"`
}

type planRequest struct {
	Prompt string `json:"prompt"`
	UserID string `json:"user_id,omitempty"`
}

type executeStepRequest struct {
	WorkflowID string `json:"workflow_id"`
	StepID     int    `json:"step_id"`
	Tool       string `json:"tool"`
	Action     string `json:"action"`
	Context    string `json:"context,omitempty"`
}
