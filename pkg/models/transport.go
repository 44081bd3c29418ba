package models

import "time"

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Details string `json:"details,omitempty"`
}

// HealthResponse reports liveness and worker pool counters
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Taggers   int                    `json:"taggers"`
	Workers   interface{}            `json:"workers,omitempty"`
	Passes    map[string]interface{} `json:"passes,omitempty"`
}

// AddImageRequest asks for an image to be catalogued.
// Copy ingests the file into the content-addressed index first.
type AddImageRequest struct {
	Path        string `json:"path" binding:"required"`
	Copy        bool   `json:"copy,omitempty"`
	SkipTagging bool   `json:"skip_tagging,omitempty"`
}

// PassRequest runs taggers over a selection. Empty fields mean all taggers
// and all images.
type PassRequest struct {
	Taggers []string `json:"taggers,omitempty"`
	Select  []string `json:"select,omitempty"`
}
