package model

import "encoding/json"

// Turn is one message of prior conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PlanRequest is one inbound planning invocation.
type PlanRequest struct {
	Message    string      `json:"message"`
	Challenges []Challenge `json:"challenges"`
	History    []Turn      `json:"history"`
}

// UnmarshalJSON accepts "prompt" as an alias of "message".
func (r *PlanRequest) UnmarshalJSON(data []byte) error {
	type plain PlanRequest
	aux := struct {
		*plain
		Prompt string `json:"prompt"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.Message == "" {
		r.Message = aux.Prompt
	}
	return nil
}

// WorkflowResult is the single value returned for a request.
// Route is nil for greeting and empty-catalog short circuits and on failure.
type WorkflowResult struct {
	Response string `json:"response"`
	Route    *Route `json:"route"`
}
