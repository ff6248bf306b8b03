package server

import "github.com/fyrsmithlabs/mathd/internal/solution"

// SolveRequest is the JSON body for POST /solve.
type SolveRequest struct {
	Question string `json:"question"`
}

// FeedbackRequest is the JSON body for POST /feedback.
type FeedbackRequest struct {
	SolutionID string `json:"solution_id"`
	Rating     int    `json:"rating"`
	Text       string `json:"feedback_text,omitempty"`
	Correction string `json:"correction,omitempty"`
}

// FeedbackResponse is the JSON response for POST /feedback.
type FeedbackResponse struct {
	Success          bool               `json:"success"`
	Message          string             `json:"message"`
	ImprovedSolution *solution.Solution `json:"improved_solution,omitempty"`
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status       string `json:"status"`
	Service      string `json:"service"`
	BackendReady bool   `json:"backend_ready"`
}

// ErrorResponse is the JSON body for error statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}
