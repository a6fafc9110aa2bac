// Package server provides the HTTP trigger server. It includes handlers,
// middleware, routes, and DTOs separated from domain types.
package server

import "time"

// CreateRunRequest is the optional HTTP request body for starting a run.
type CreateRunRequest struct {
	// Genre overrides the random topic pick.
	Genre string `json:"genre" validate:"omitempty,max=120"`
	// Privacy overrides the default upload privacy status.
	Privacy string `json:"privacy" validate:"omitempty,oneof=public unlisted private"`
}

// CreateRunResponse is the HTTP response after a run was admitted.
type CreateRunResponse struct {
	ID    string `json:"id"`
	Stage string `json:"stage"`
}

// RunResponse describes a run and whatever it has produced so far.
type RunResponse struct {
	ID          string     `json:"id"`
	Stage       string     `json:"stage"`
	FailedStage string     `json:"failed_stage,omitempty"`
	Error       string     `json:"error,omitempty"`
	Genre       string     `json:"genre,omitempty"`
	Title       string     `json:"title,omitempty"`
	Clips       int        `json:"clips,omitempty"`
	SpeedFactor float64    `json:"speed_factor,omitempty"`
	VideoID     string     `json:"video_id,omitempty"`
	VideoURL    string     `json:"video_url,omitempty"`
	ArchiveURL  string     `json:"archive_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListRunsResponse wraps the run list.
type ListRunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	// Busy is true while a run is in progress.
	Busy bool `json:"busy"`
}
