// Package agent drives the conversation with the language model: it builds
// the initial request, and when the model elects to use tools it runs the
// bounded multi-round tool-calling loop against a tool registry.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/coursemind/coursemind/internal/tools"
	"github.com/rs/zerolog/log"
)

const (
	defaultMaxTokens  = 800
	stopReasonToolUse = "tool_use"
)

// modelCaller is the seam between the orchestration logic and the Anthropic
// SDK. toolParams == nil means no tools are offered on that call.
type modelCaller interface {
	createMessage(ctx context.Context, messages []anthropic.MessageParam, system string, toolParams []anthropic.ToolUnionUnionParam) (*anthropic.Message, error)
}

type anthropicCaller struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

func (c *anthropicCaller) createMessage(ctx context.Context, messages []anthropic.MessageParam, system string, toolParams []anthropic.ToolUnionUnionParam) (*anthropic.Message, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.F(anthropic.Model(c.model)),
		MaxTokens:   anthropic.F(c.maxTokens),
		Temperature: anthropic.F(0.0),
		Messages:    anthropic.F(messages),
	}
	if system != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(system),
		})
	}
	if len(toolParams) > 0 {
		params.Tools = anthropic.F(toolParams)
	}
	return c.client.Messages.New(ctx, params)
}

// ResponseGenerator is the front door for answering one query. It holds no
// per-query state; orchestration state lives in the loop for the duration of
// a single Generate call.
type ResponseGenerator struct {
	caller    modelCaller
	maxRounds int
}

// NewResponseGenerator creates a generator backed by Anthropic Claude or a
// compatible provider. maxRounds bounds the number of tool-calling rounds per
// query.
func NewResponseGenerator(apiKey, model, baseURL string, maxRounds int) *ResponseGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &ResponseGenerator{
		caller: &anthropicCaller{
			client:    client,
			model:     model,
			maxTokens: defaultMaxTokens,
		},
		maxRounds: maxRounds,
	}
}

// TestConnection makes a minimal model call to verify connectivity. It
// reports the outcome as a success flag plus message rather than an error so
// startup code can log and continue degraded.
func (g *ResponseGenerator) TestConnection(ctx context.Context) (bool, string) {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock("test")),
	}
	if _, err := g.caller.createMessage(ctx, messages, "", nil); err != nil {
		return false, fmt.Sprintf("Connection failed: %v", err)
	}
	return true, "Connection successful"
}

// Generate answers one query. history is prior turns pre-formatted as text
// (appended verbatim to the system content); registry supplies the tools the
// model may invoke, or nil to answer without tools. A query answerable
// without tools costs exactly one model call.
func (g *ResponseGenerator) Generate(ctx context.Context, query, history string, registry *tools.Registry) (string, error) {
	system := systemPrompt
	if history != "" {
		system = fmt.Sprintf("%s\n\nPrevious conversation:\n%s", systemPrompt, history)
	}

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
	}

	var toolParams []anthropic.ToolUnionUnionParam
	if registry != nil {
		toolParams = buildToolParams(registry.Definitions())
	}

	resp, err := g.caller.createMessage(ctx, messages, system, toolParams)
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}

	if string(resp.StopReason) == stopReasonToolUse && registry != nil {
		return g.runToolLoop(ctx, messages, system, resp, registry)
	}

	return extractText(resp), nil
}

// runToolLoop executes tool invocations requested by the model, feeding
// results back as new turns, for at most maxRounds rounds. When the budget is
// exhausted it makes one final call without tool schemas so the model must
// produce a terminal answer.
func (g *ResponseGenerator) runToolLoop(ctx context.Context, messages []anthropic.MessageParam, system string, first *anthropic.Message, registry *tools.Registry) (string, error) {
	last := first

	for round := 0; round < g.maxRounds; {
		if !hasToolUse(last) {
			// Early termination: the model stopped requesting tools.
			return extractText(last), nil
		}

		// Append the assistant turn with its invocation blocks as-is, then
		// one user turn with the identifier-matched results in order.
		messages = append(messages, last.ToParam())

		results, execErr := g.executeRound(ctx, last, registry)
		if execErr != nil {
			// Fatal to the query, not the process: abort immediately with a
			// fixed user-facing answer.
			log.Warn().Err(execErr).Msg("tool execution failed, aborting query")
			return fmt.Sprintf("I encountered an error while searching: %s", execErr.Error()), nil
		}
		messages = append(messages, anthropic.NewUserMessage(results...))

		round++

		if round == g.maxRounds {
			// Round budget exhausted: force a terminal answer. Any tool
			// requests in this response are discarded.
			resp, err := g.caller.createMessage(ctx, messages, system, nil)
			if err != nil {
				return "", fmt.Errorf("final model call failed: %w", err)
			}
			return extractText(resp), nil
		}

		resp, err := g.caller.createMessage(ctx, messages, system, buildToolParams(registry.Definitions()))
		if err != nil {
			return "", fmt.Errorf("model call failed: %w", err)
		}
		last = resp
	}

	return extractText(last), nil
}

// executeRound dispatches every tool-invocation block of the response in
// order. The first dispatch error aborts the round; remaining tools are not
// executed.
func (g *ResponseGenerator) executeRound(ctx context.Context, resp *anthropic.Message, registry *tools.Registry) ([]anthropic.ContentBlockParamUnion, error) {
	var results []anthropic.ContentBlockParamUnion

	for _, block := range resp.Content {
		if block.Type != anthropic.ContentBlockTypeToolUse {
			continue
		}

		input := map[string]interface{}{}
		if len(block.Input) > 0 {
			if err := json.Unmarshal(block.Input, &input); err != nil {
				log.Warn().Err(err).Str("tool", block.Name).Msg("failed to parse tool input")
				input = map[string]interface{}{}
			}
		}

		log.Debug().Str("tool", block.Name).Str("id", block.ID).Msg("dispatching tool invocation")
		text, err := registry.Execute(ctx, block.Name, input)
		if err != nil {
			return nil, err
		}
		results = append(results, anthropic.NewToolResultBlock(block.ID, text, false))
	}

	return results, nil
}

func hasToolUse(resp *anthropic.Message) bool {
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeToolUse {
			return true
		}
	}
	return false
}

// extractText concatenates the text blocks of a response in order, ignoring
// tool-invocation blocks. A response with no text blocks yields "".
func extractText(resp *anthropic.Message) string {
	var text string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			text += block.Text
		}
	}
	return text
}

func buildToolParams(defs []tools.Definition) []anthropic.ToolUnionUnionParam {
	if len(defs) == 0 {
		return nil
	}
	params := make([]anthropic.ToolUnionUnionParam, len(defs))
	for i, d := range defs {
		params[i] = anthropic.ToolParam{
			Name:        anthropic.String(d.Name),
			Description: anthropic.String(d.Description),
			InputSchema: anthropic.F[interface{}](d.InputSchema),
		}
	}
	return params
}
