// Package responder turns inbound platform messages into replies: it
// resolves the conversation, routes privileged commands, and drives the
// multi-round completion loop that stitches capped completions into one
// agent turn.
package responder

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/antoniostano/dorothy/internal/chat"
	"github.com/antoniostano/dorothy/internal/command"
	"github.com/antoniostano/dorothy/internal/completion"
	"github.com/antoniostano/dorothy/internal/observability"
)

// FailureReply is the fixed user-visible message when the completion
// service fails. The transport layer sends it in place of a reply.
const FailureReply = "Failed to complete, try resetting"

// Inbound is one platform message handed to the core. The conversation key
// and privacy flag are derived by the transport layer; the core treats them
// as opaque.
type Inbound struct {
	ConversationKey string
	AuthorID        string
	AuthorName      string
	Private         bool
	Content         string
}

type Responder struct {
	registry    *chat.Registry
	client      completion.Client
	interp      *command.Interpreter
	metrics     *observability.Metrics
	latency     *observability.LatencyWindow
	agentName   string
	prefix      string
	maxTokens   int
	callTimeout time.Duration
}

func New(
	registry *chat.Registry,
	client completion.Client,
	interp *command.Interpreter,
	metrics *observability.Metrics,
	latency *observability.LatencyWindow,
	agentName, prefix string,
	maxTokens int,
	callTimeout time.Duration,
) *Responder {
	if maxTokens <= 0 {
		maxTokens = 50
	}
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &Responder{
		registry:    registry,
		client:      client,
		interp:      interp,
		metrics:     metrics,
		latency:     latency,
		agentName:   agentName,
		prefix:      prefix,
		maxTokens:   maxTokens,
		callTimeout: callTimeout,
	}
}

// HandleMessage processes one inbound message and returns the reply text.
// Commands return their confirmation (possibly empty); chat messages are
// appended as a human turn and answered by the completion loop. A non-nil
// error means the completion service failed and no reply exists.
func (r *Responder) HandleMessage(ctx context.Context, in Inbound) (string, error) {
	content := strings.TrimSpace(strings.ReplaceAll(in.Content, "\n", " "))
	h := r.registry.GetOrCreate(in.ConversationKey, in.Private)
	r.metrics.ActiveConversations.Set(float64(r.registry.Len()))

	if reply, handled := r.interp.Handle(h, in.AuthorID, content); handled {
		r.metrics.InboundMessages.WithLabelValues("command").Inc()
		if cmd, ok := command.Parse(content, r.prefix); ok {
			r.metrics.CommandEvents.WithLabelValues(string(cmd.Kind)).Inc()
		}
		return reply, nil
	}
	r.metrics.InboundMessages.WithLabelValues("chat").Inc()

	h.AddHumanLine(in.AuthorName, content)

	start := time.Now()
	reply, err := r.generate(ctx, h)
	r.latency.Observe("reply_total", time.Since(start))
	if err != nil {
		return "", err
	}
	return reply, nil
}

// generate runs the completion loop. The first round primes the prompt with
// the agent's label and appends a fresh agent turn; continuation rounds
// re-render (the partial turn already ends at the continuation point) and
// extend that turn in place. The loop exits on a stop finish, an empty
// choice list, or any call failure.
func (r *Responder) generate(ctx context.Context, h *chat.History) (string, error) {
	var reply strings.Builder
	firstRound := true
	for {
		prompt := h.Render(r.agentName)
		if firstRound {
			prompt += r.agentName + ":"
		}

		sampling := h.Sampling()
		n := 1
		req := completion.Request{
			Prompt:           prompt,
			MaxTokens:        r.maxTokens,
			Temperature:      sampling.Temperature,
			TopP:             sampling.TopP,
			PresencePenalty:  sampling.PresencePenalty,
			FrequencyPenalty: sampling.FrequencyPenalty,
			N:                &n,
			Stop:             h.StopTokens(r.agentName),
		}

		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		callStart := time.Now()
		res, err := r.client.Complete(callCtx, req)
		cancel()
		callElapsed := time.Since(callStart)
		r.latency.Observe("completion_call", callElapsed)
		r.metrics.ObserveCompletionLatency(callElapsed)
		if err != nil {
			r.metrics.CompletionCalls.WithLabelValues("error").Inc()
			return "", fmt.Errorf("completion call: %w", err)
		}

		if len(res.Choices) == 0 {
			r.metrics.CompletionCalls.WithLabelValues("empty").Inc()
			return reply.String(), nil
		}

		choice := res.Choices[0]
		text := strings.ReplaceAll(choice.Text, "\n", " ")
		if firstRound {
			h.AddAILine(text)
			firstRound = false
		} else if err := h.ContinueLastAILine(text); err != nil {
			log.Printf("dropping continuation fragment: %v", err)
		}
		reply.WriteString(text)

		r.metrics.CompletionCalls.WithLabelValues(string(choice.FinishReason)).Inc()
		if choice.FinishReason == completion.FinishStop {
			return reply.String(), nil
		}
	}
}
