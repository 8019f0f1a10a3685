package completion

import "context"

// FinishReason is the remote service's signal for why a call ended.
type FinishReason string

const (
	// FinishLength means the per-call max_tokens cap was hit.
	FinishLength FinishReason = "length"
	// FinishStop means one of the provided stop tokens matched.
	FinishStop FinishReason = "stop"
)

// Request is the body of one completion call.
type Request struct {
	Prompt           string   `json:"prompt"`
	MaxTokens        int      `json:"max_tokens"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *int     `json:"top_p,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	N                *int     `json:"n,omitempty"`
	Stop             []string `json:"stop,omitempty"`
}

type Choice struct {
	Text         string       `json:"text"`
	Index        int          `json:"index"`
	FinishReason FinishReason `json:"finish_reason"`
}

type Response struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Client calls the remote completion service.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
