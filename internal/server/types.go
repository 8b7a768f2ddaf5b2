package server

// SubmitInputRequest is the POST /api/input body.
type SubmitInputRequest struct {
	Content string `json:"content"`
}

// SelectModelRequest is the POST /api/select_model body.
type SelectModelRequest struct {
	Model string `json:"model"`
}

// SaveArtifactRequest is the POST /api/artifacts body.
type SaveArtifactRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// PhaseStatus is returned by GET /api/phase.
type PhaseStatus struct {
	Phase       string `json:"phase"`
	Requirement string `json:"requirement,omitempty"`
	Summaries   int    `json:"summaries"`
	Turns       int    `json:"turns"`
}

// ModelsResponse is returned by GET /api/models.
type ModelsResponse struct {
	Models   []string `json:"models"`
	Selected string   `json:"selected"`
	Error    string   `json:"error,omitempty"`
}

// ErrorResponse is a standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
