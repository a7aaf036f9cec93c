package api

import (
	"github.com/ibeckermayer/proofshot/internal/assembler"
	"github.com/ibeckermayer/proofshot/internal/types"
)

// generateRequest is the body of POST /api/artifacts. Field-level rules for
// input, platform and tone are enforced by the assembler.
type generateRequest struct {
	Input    string         `json:"input" validate:"required"`
	Platform string         `json:"platform" validate:"required"`
	Tone     string         `json:"tone"`
	Count    int            `json:"count" validate:"omitempty,min=1,max=20"`
	Metrics  map[string]any `json:"metrics,omitempty"`
}

func (g generateRequest) toAssembler() (assembler.Request, int) {
	count := g.Count
	if count == 0 {
		count = 1
	}
	return assembler.Request{
		Input:    g.Input,
		Platform: types.Platform(g.Platform),
		Tone:     types.Tone(g.Tone),
		Metrics:  g.Metrics,
	}, count
}

// generateResponse carries the artifacts built. Error is set when the batch
// stopped early.
type generateResponse struct {
	Artifacts []types.Artifact `json:"artifacts"`
	Error     string           `json:"error,omitempty"`
}

// exportRequest is the body of POST /api/exports
type exportRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=50,dive,required"`
}

// metricsRequest is the body of PUT /api/artifacts/{id}/metrics. It uses the
// same override keys as generation; values are coerced, not rejected.
type metricsRequest struct {
	Metrics map[string]any `json:"metrics" validate:"required"`
}

type listResponse struct {
	Artifacts []types.Artifact `json:"artifacts"`
}
