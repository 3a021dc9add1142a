// Command execution for CLI commands.
//
// Information Hiding:
// - Command dispatch logic hidden
// - Output formatting hidden
// - Chat history threading hidden

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/libra-agent/libra/agent"
	"github.com/libra-agent/libra/model"
)

// RunTask executes a single task and prints the answer.
func RunTask(ctx context.Context, task string, opts Options) error {
	app, err := NewApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	result := app.Agent.Run(ctx, task, agent.RunOptions{
		MaxSteps: app.Settings.Agent.MaxSteps,
		UserID:   opts.UserID,
	})
	printResult(result, opts.Verbose)
	if !result.Success {
		return fmt.Errorf("task did not complete: %s", result.FinalAnswer.Summary)
	}
	return nil
}

// Chat starts an interactive session. Turns are persisted under the
// session ID and prior turns are threaded into each new task so the
// agent can resolve follow-up questions.
func Chat(ctx context.Context, sessionID string, opts Options) error {
	app, err := NewApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	if sessionID == "" {
		sessionID = uuid.NewString()
		fmt.Printf("Session: %s\n", sessionID)
	}

	turns, err := app.Store.Turns(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(turns) > 0 {
		fmt.Printf("Resuming session with %d prior turns.\n", len(turns))
	}
	fmt.Println("Type a task, or 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		task := strings.TrimSpace(scanner.Text())
		if task == "" {
			continue
		}
		if task == "exit" || task == "quit" {
			return nil
		}

		result := app.Agent.Run(ctx, threadedTask(task, turns), agent.RunOptions{
			MaxSteps: app.Settings.Agent.MaxSteps,
			UserID:   opts.UserID,
		})
		printResult(result, opts.Verbose)

		turn := model.ChatTurn{
			SessionID:      sessionID,
			Task:           task,
			Summary:        result.FinalAnswer.Summary,
			DetailedAnswer: result.FinalAnswer.DetailedAnswer,
			Sources:        result.FinalAnswer.Sources,
			TokenUsage:     result.TokenUsage,
		}
		if err := app.Store.SaveTurn(ctx, turn); err != nil {
			app.Logger.Warn("failed to persist chat turn")
			fmt.Fprintf(os.Stderr, "Warning: could not save turn: %v\n", err)
		}
		turns = append(turns, turn)
	}
}

// threadedTask prefixes the new task with the session's earlier
// exchanges so follow-ups like "and what about X?" have context.
func threadedTask(task string, turns []model.ChatTurn) string {
	if len(turns) == 0 {
		return task
	}
	var b strings.Builder
	b.WriteString("Earlier conversation:\n")
	for _, t := range turns {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", t.Task, t.DetailedAnswer)
	}
	fmt.Fprintf(&b, "\nCurrent task: %s", task)
	return b.String()
}

func printResult(result model.RunResult, verbose bool) {
	if verbose {
		printSteps(result.Steps)
	}
	fmt.Printf("\n%s\n\n%s\n", result.FinalAnswer.Summary, result.FinalAnswer.DetailedAnswer)
	if len(result.FinalAnswer.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, s := range result.FinalAnswer.Sources {
			fmt.Printf("  - %s\n", s)
		}
	}
	fmt.Printf("\n(%d steps, %d tokens)\n", len(result.Steps), result.TokenUsage)
}

func printSteps(steps []model.Step) {
	for _, s := range steps {
		fmt.Printf("[step %d] %s\n", s.StepIndex+1, s.Thought)
		if s.Type == model.StepToolCall {
			fmt.Printf("  tool: %s\n", s.ToolName)
			if len(s.ToolResult) > 0 {
				preview := string(s.ToolResult)
				if len(preview) > 200 {
					preview = preview[:200] + "..."
				}
				fmt.Printf("  result: %s\n", preview)
			}
		}
	}
}

// ListTools prints the registered tools the way the agent sees them.
func ListTools(opts Options) error {
	app, err := NewApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Print(app.Registry.Describe())
	return nil
}
