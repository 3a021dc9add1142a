// Application wiring for CLI commands.
//
// Information Hiding:
// - Collaborator construction and dependency order hidden
// - Provider and embedder selection hidden behind App

package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/libra-agent/libra/agent"
	"github.com/libra-agent/libra/config"
	"github.com/libra-agent/libra/drive"
	"github.com/libra-agent/libra/ingest"
	"github.com/libra-agent/libra/llm"
	"github.com/libra-agent/libra/storage"
	"github.com/libra-agent/libra/tools"
)

// Options holds CLI execution options.
type Options struct {
	Provider string
	Model    string
	MaxSteps int
	UserID   string
	DBPath   string
	Verbose  bool
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{
		MaxSteps: agent.DefaultMaxSteps,
		UserID:   "default",
	}
}

// App bundles the wired application collaborators.
type App struct {
	Settings  config.Settings
	Logger    *zap.Logger
	Store     *storage.SqliteStore
	Provider  llm.Provider
	Embedder  llm.Embedder
	Connector *drive.Connector
	Registry  *tools.Registry
	Agent     *agent.Agent
	Pipeline  *ingest.Pipeline
	Syncer    *ingest.Syncer
}

// NewApp loads settings and wires every collaborator. CLI flags override
// environment configuration.
func NewApp(opts Options) (*App, error) {
	settings, err := config.New()
	if err != nil {
		return nil, err
	}
	if opts.Provider != "" {
		provider, err := llm.ParseProviderType(opts.Provider)
		if err != nil {
			return nil, err
		}
		settings.LLM.Provider = provider
		if opts.Model == "" {
			settings.LLM.Model = provider.DefaultModel()
		}
	}
	if opts.Model != "" {
		settings.LLM.Model = opts.Model
	}
	if opts.MaxSteps > 0 {
		settings.Agent.MaxSteps = opts.MaxSteps
	}
	if opts.DBPath != "" {
		settings.DBPath = opts.DBPath
	}

	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	store, err := storage.OpenSqlite(settings.DBPath)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	apiKey, err := settings.APIKey()
	if err != nil {
		store.Close()
		logger.Sync()
		return nil, err
	}
	provider, err := llm.NewProvider(settings.LLM.Provider, apiKey, llm.Options{
		Model:       settings.LLM.Model,
		MaxTokens:   settings.LLM.MaxTokens,
		Temperature: settings.LLM.Temperature,
	})
	if err != nil {
		store.Close()
		logger.Sync()
		return nil, err
	}

	embedder := llm.NewOpenAIEmbedder(settings.LLM.OpenAIAPIKey)
	connector := drive.NewConnector(
		settings.Drive.ClientID,
		settings.Drive.ClientSecret,
		settings.Drive.RedirectURL,
		store,
	)

	registry := tools.NewRegistry()
	registry.Register(tools.NewWebSearchTool(settings.Tools.SerperAPIKey))
	registry.Register(tools.NewWebScrapeTool())
	registry.Register(tools.NewDriveSearchTool(connector))
	registry.Register(tools.NewVectorSearchTool(embedder, store))

	pipeline := ingest.NewPipeline(
		driveConnector{connector},
		store,
		embedder,
		logger,
		ingest.Config{
			MaxFileBytes:   settings.Ingest.MaxFileBytes,
			EmbedBatchSize: settings.Ingest.EmbedBatchSize,
			HeapLimitBytes: settings.Ingest.HeapLimitBytes,
		},
	)

	return &App{
		Settings:  settings,
		Logger:    logger,
		Store:     store,
		Provider:  provider,
		Embedder:  embedder,
		Connector: connector,
		Registry:  registry,
		Agent:     agent.New(provider, registry, logger),
		Pipeline:  pipeline,
		Syncer:    ingest.NewSyncer(pipeline, logger),
	}, nil
}

// Close releases the app's resources.
func (a *App) Close() {
	a.Store.Close()
	a.Logger.Sync()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// driveConnector adapts *drive.Connector to the pipeline's interface.
type driveConnector struct {
	inner *drive.Connector
}

func (c driveConnector) ClientFor(ctx context.Context, userID string) (ingest.DriveClient, error) {
	client, err := c.inner.ClientFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return client, nil
}
