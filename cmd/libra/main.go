// Package main provides the libra CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/libra-agent/libra/cli"
)

var (
	// Global flags
	provider string
	mdl      string
	maxSteps int
	userID   string
	dbPath   string
	verbose  bool
)

func globalOptions() cli.Options {
	opts := cli.DefaultOptions()
	opts.Provider = provider
	opts.Model = mdl
	opts.MaxSteps = maxSteps
	if userID != "" {
		opts.UserID = userID
	}
	opts.DBPath = dbPath
	opts.Verbose = verbose
	return opts
}

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "libra",
		Short: "Task-solving agent with web and document tools",
		Long: `An agent that answers natural-language tasks by iteratively calling
tools: web search, web scraping, Google Drive search, and semantic
search over your ingested documents.

Connect Google Drive and ingest documents first to enable document
questions, or just ask web questions directly.`,
	}

	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().StringVar(&mdl, "model", "", "Model name (defaults per provider)")
	rootCmd.PersistentFlags().IntVarP(&maxSteps, "max-steps", "m", 0, "Maximum agent steps per task")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User ID scoping Drive access and document search")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show agent steps and debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(connectCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(syncTokenCmd())
	rootCmd.AddCommand(toolsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [task]",
		Short: "Execute a single task and print the answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunTask(context.Background(), args[0], globalOptions())
		},
	}
}

func chatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session with persistent history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(context.Background(), sessionID, globalOptions())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to resume (new session when omitted)")
	return cmd
}

func connectCmd() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect the user's Google Drive account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Connect(context.Background(), code, globalOptions())
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "OAuth authorization code from the consent redirect")
	return cmd
}

func ingestCmd() *cobra.Command {
	var fileIDs []string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest the user's Drive documents into the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Ingest(context.Background(), fileIDs, globalOptions())
		},
	}
	cmd.Flags().StringArrayVar(&fileIDs, "file", nil, "Drive file ID to ingest (repeatable; all supported files when omitted)")
	return cmd
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [page-token]",
		Short: "Apply Drive changes since a page token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Sync(context.Background(), args[0], globalOptions())
		},
	}
}

func syncTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-token",
		Short: "Print the change-feed checkpoint for the first sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.SyncToken(context.Background(), globalOptions())
		},
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools available to the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListTools(globalOptions())
		},
	}
}
