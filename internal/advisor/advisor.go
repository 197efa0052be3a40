// Package advisor asks a chat model to pick dashboard charts from the
// candidate drafts and returns its raw reply for parsing.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/sheetcharts/internal/ai"
	"github.com/KaramelBytes/sheetcharts/internal/chart"
	"github.com/KaramelBytes/sheetcharts/internal/logging"
	"github.com/KaramelBytes/sheetcharts/internal/utils"
)

// ErrEmptyReply is wrapped when the model answers with neither text nor a tool call.
var ErrEmptyReply = errors.New("reasoning service returned an empty response")

// ReasoningServiceError reports a failed or unusable reasoning call.
type ReasoningServiceError struct {
	Err error
}

func (e *ReasoningServiceError) Error() string {
	return fmt.Sprintf("reasoning service error: %v", e.Err)
}

func (e *ReasoningServiceError) Unwrap() error { return e.Err }

// Options configures an Advisor.
type Options struct {
	Model string
	// Structured requests the reply as a forced submit_charts tool call.
	Structured  bool
	Temperature float64
	MaxTokens   int
	Logger      *slog.Logger
}

type Advisor struct {
	rt   ai.Runtime
	opts Options
	log  *slog.Logger
}

func New(rt ai.Runtime, opts Options) *Advisor {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Advisor{rt: rt, opts: opts, log: log}
}

// Ask sends one request and returns the reply text: the submit_charts
// arguments when the model called the tool, otherwise the message content.
// There is no retry; the caller's context bounds the call.
func (a *Advisor) Ask(ctx context.Context, records []chart.Record, candidates chart.Set, intent string) (string, error) {
	msgs, err := BuildMessages(records, candidates, intent)
	if err != nil {
		return "", &ReasoningServiceError{Err: err}
	}
	req := ai.GenerateRequest{
		Model:       a.opts.Model,
		Messages:    msgs,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
	}
	if a.opts.Structured {
		req.Tools = []ai.Tool{Tool()}
		req.ToolChoice = ai.ForceTool(ToolName)
	} else {
		req.ResponseFormat = map[string]any{"type": "json_object"}
	}
	a.log.Debug("advisor.request",
		"model", req.Model,
		"structured", a.opts.Structured,
		"records", len(records),
		"candidates", len(candidates.Charts),
		"est_tokens", utils.TokenBreakdown(map[string]string{"system": msgs[0].Content, "user": msgs[1].Content}),
	)

	resp, err := a.rt.Generate(ctx, req)
	if err != nil {
		a.log.Warn("advisor.failed", "model", req.Model, "status", ai.StatusCode(err), "error", err.Error())
		return "", &ReasoningServiceError{Err: err}
	}
	reply := ExtractReply(resp)
	a.log.Debug("advisor.reply",
		"request_id", resp.RequestID,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"reply", utils.Preview(reply, 500),
	)
	if strings.TrimSpace(reply) == "" {
		return "", &ReasoningServiceError{Err: ErrEmptyReply}
	}
	return reply, nil
}

// ExtractReply returns the submit_charts arguments from the first choice, or
// its trimmed text content when no such tool call is present.
func ExtractReply(resp *ai.GenerateResponse) string {
	msg, ok := resp.FirstMessage()
	if !ok {
		return ""
	}
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == ToolName && strings.TrimSpace(tc.Function.Arguments) != "" {
			return tc.Function.Arguments
		}
	}
	return strings.TrimSpace(msg.Content)
}
