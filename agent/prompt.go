package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/libra-agent/libra/model"
)

const systemPromptTemplate = `You are an autonomous agent. Given a task, you must respond with exactly one JSON object and nothing else.

Available tools:
%s
Response format (strict JSON only, no markdown or extra text):
- To call a tool: {"type":"tool_call","thought":"...","tool_name":"<name>","tool_arguments":{...}}
- To finish: {"type":"final_answer","thought":"...","final_answer":{"summary":"...","detailed_answer":"...","sources":[]}}

Rules:
- Respond with only the JSON object. No ` + "```json" + ` or explanation outside the JSON.
- For final_answer, "sources" must be an array of strings (URLs or references).
- Use tools when you need external information; then summarize in final_answer.
- Inside summary and detailed_answer, do NOT use markdown formatting such as **bold**, numbered markdown lists, or headings. Use plain text only (e.g. "Amazon:" instead of "**Amazon**:").`

// systemPrompt renders the fixed instruction with the registry's tool
// descriptions.
func systemPrompt(toolDescriptions string) string {
	return fmt.Sprintf(systemPromptTemplate, toolDescriptions)
}

// formatSteps renders prior steps as readable blocks for the next prompt.
func formatSteps(steps []model.Step) string {
	blocks := make([]string, 0, len(steps))
	for _, s := range steps {
		var b strings.Builder
		fmt.Fprintf(&b, "Step %d:\nThought: %s\n", s.StepIndex+1, s.Thought)
		if s.Type == model.StepToolCall && s.ToolName != "" {
			fmt.Fprintf(&b, "Tool: %s\nArguments: %s\n", s.ToolName, marshalOrEmpty(s.ToolArguments))
			fmt.Fprintf(&b, "Result: %s\n", rawOrNull(s.ToolResult))
		}
		if s.Type == model.StepFinalAnswer && s.FinalAnswer != nil {
			answer, _ := json.Marshal(s.FinalAnswer)
			fmt.Fprintf(&b, "Final answer: %s\n", answer)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n---\n")
}

// buildUserMessage assembles the task plus the rendered step history.
func buildUserMessage(task string, steps []model.Step) string {
	if len(steps) == 0 {
		return fmt.Sprintf("Task: %s\n\nPlan your steps and either call a tool or respond with final_answer.", task)
	}
	return fmt.Sprintf("Task: %s\n\nPrevious steps:\n%s\n\nContinue: either call another tool (tool_call) or provide your final answer (final_answer).",
		task, formatSteps(steps))
}

func marshalOrEmpty(args map[string]json.RawMessage) string {
	if len(args) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func rawOrNull(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}
