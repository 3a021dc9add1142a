// Package agent implements the bounded-step control loop: build a prompt
// from the task and prior steps, ask the model for a decision, dispatch
// tool calls, and stop on a final answer or when the budget runs out.
//
// Information Hiding:
// - Prompt construction and step rendering are internal
// - Protocol repair lives in the protocol package; the loop only sees
//   validated decisions
// - Tool failures and parse failures surface as recorded steps, never
//   as errors from Run

package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/libra-agent/libra/llm"
	"github.com/libra-agent/libra/model"
	"github.com/libra-agent/libra/protocol"
	"github.com/libra-agent/libra/tools"
)

const (
	// DefaultMaxSteps is the step budget when the caller does not set one.
	DefaultMaxSteps = 10
	// MaxStepsLimit is the hard ceiling a caller-provided budget is
	// clamped to.
	MaxStepsLimit = 20

	// parseErrorTool is the reserved pseudo-tool name recorded when the
	// model's response could not be parsed.
	parseErrorTool = "_parse_error"
)

// Agent runs tasks against a provider and a tool registry.
type Agent struct {
	provider llm.Provider
	registry *tools.Registry
	logger   *zap.Logger
}

// RunOptions configures a single run.
type RunOptions struct {
	// MaxSteps is the step budget. Zero selects DefaultMaxSteps; values
	// above MaxStepsLimit are clamped.
	MaxSteps int
	// UserID scopes user-bound tools (Drive search, vector search).
	UserID string
}

// New creates an agent.
func New(provider llm.Provider, registry *tools.Registry, logger *zap.Logger) *Agent {
	return &Agent{provider: provider, registry: registry, logger: logger}
}

// Run executes the control loop for one task. It never returns an error:
// model faults, parse failures and tool failures all degrade into
// recorded steps or a synthesized failing answer.
func (a *Agent) Run(ctx context.Context, task string, opts RunOptions) model.RunResult {
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if maxSteps > MaxStepsLimit {
		maxSteps = MaxStepsLimit
	}

	system := systemPrompt(a.registry.Describe())
	toolCtx := tools.Context{UserID: opts.UserID}

	var steps []model.Step
	totalTokens := 0

	for stepIndex := 0; stepIndex < maxSteps; stepIndex++ {
		messages := []llm.ChatMessage{
			llm.SystemMessage(system),
			llm.UserMessage(buildUserMessage(task, steps)),
		}

		resp, err := a.provider.Chat(ctx, messages)
		if err != nil {
			a.logger.Error("model request failed", zap.Int("step", stepIndex), zap.Error(err))
			steps = append(steps, emptyResponseStep(stepIndex, fmt.Sprintf("Model request failed: %v", err)))
			break
		}
		if resp.Usage != nil {
			totalTokens += resp.Usage.TotalTokens
		}
		if resp.Content == "" {
			a.logger.Error("model returned empty response", zap.Int("step", stepIndex))
			steps = append(steps, emptyResponseStep(stepIndex, "LLM returned empty response."))
			break
		}

		decision, err := protocol.Parse(resp.Content)
		if err != nil {
			a.logger.Warn("unparseable model response",
				zap.Int("step", stepIndex),
				zap.String("content", resp.Content),
				zap.Error(err))
			steps = append(steps, parseErrorStep(stepIndex))
			continue
		}

		if decision.Type == model.StepFinalAnswer {
			steps = append(steps, model.Step{
				StepIndex:   stepIndex,
				Thought:     decision.Thought,
				Type:        model.StepFinalAnswer,
				FinalAnswer: decision.FinalAnswer,
			})
			return model.RunResult{
				Success:     true,
				Steps:       steps,
				FinalAnswer: *decision.FinalAnswer,
				TokenUsage:  totalTokens,
			}
		}

		result := a.registry.Execute(ctx, decision.ToolName, decision.ToolArguments, toolCtx)
		steps = append(steps, model.Step{
			StepIndex:     stepIndex,
			Thought:       decision.Thought,
			Type:          model.StepToolCall,
			ToolName:      decision.ToolName,
			ToolArguments: decision.ToolArguments,
			ToolResult:    toolResultPayload(result),
		})
		if !result.Success {
			a.logger.Warn("tool call failed",
				zap.Int("step", stepIndex),
				zap.String("tool", decision.ToolName),
				zap.String("error", result.Error))
		}
	}

	// Budget exhausted, or the loop broke on an upstream fault. Either
	// way the run did not reach a model-produced final answer.
	answer := model.FinalAnswer{
		Summary:        "Incomplete",
		DetailedAnswer: "Maximum steps reached without a final answer. Consider rephrasing or breaking down the task.",
		Sources:        []string{},
	}
	if last := lastStep(steps); last != nil && last.Type == model.StepFinalAnswer && last.FinalAnswer != nil {
		answer = *last.FinalAnswer
	}
	return model.RunResult{
		Success:     false,
		Steps:       steps,
		FinalAnswer: answer,
		TokenUsage:  totalTokens,
	}
}

func emptyResponseStep(stepIndex int, thought string) model.Step {
	return model.Step{
		StepIndex: stepIndex,
		Thought:   thought,
		Type:      model.StepFinalAnswer,
		FinalAnswer: &model.FinalAnswer{
			Summary:        "Error",
			DetailedAnswer: "The model did not return a valid response.",
			Sources:        []string{},
		},
	}
}

func parseErrorStep(stepIndex int) model.Step {
	payload, _ := json.Marshal(map[string]string{
		"error": "Your previous response was not valid JSON. Remember: respond with ONLY a JSON object, no markdown or extra text.",
	})
	return model.Step{
		StepIndex:     stepIndex,
		Thought:       "Invalid JSON response, retrying...",
		Type:          model.StepToolCall,
		ToolName:      parseErrorTool,
		ToolArguments: map[string]json.RawMessage{},
		ToolResult:    payload,
	}
}

// toolResultPayload is what enters the step history: the tool's data on
// success, or an error object the model can read on failure.
func toolResultPayload(result tools.Result) json.RawMessage {
	if result.Success {
		return result.Data
	}
	payload, _ := json.Marshal(map[string]string{"error": result.Error})
	return payload
}

func lastStep(steps []model.Step) *model.Step {
	if len(steps) == 0 {
		return nil
	}
	return &steps[len(steps)-1]
}
