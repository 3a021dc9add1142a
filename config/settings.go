// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific API key lookup

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/libra-agent/libra/llm"
)

// Settings holds all application configuration.
type Settings struct {
	LLM    LLMConfig
	Agent  AgentConfig
	Drive  DriveConfig
	Ingest IngestConfig
	Tools  ToolsConfig

	// DBPath is the SQLite database file.
	DBPath string
}

// LLMConfig holds completion and embedding provider configuration.
type LLMConfig struct {
	Provider    llm.ProviderType
	Model       string
	MaxTokens   int
	Temperature float32

	// OpenAIAPIKey also drives embeddings regardless of the chat provider.
	OpenAIAPIKey string
}

// AgentConfig holds agent execution configuration.
type AgentConfig struct {
	MaxSteps int
}

// DriveConfig holds the Google OAuth application credentials.
type DriveConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// IngestConfig holds ingestion pipeline limits.
type IngestConfig struct {
	MaxFileBytes   int64
	EmbedBatchSize int
	HeapLimitBytes uint64
	MaxFiles       int
}

// ToolsConfig holds tool backend credentials.
type ToolsConfig struct {
	SerperAPIKey string
}

// New loads settings from environment variables, applying defaults for
// anything unset. Returns an error for an unknown provider name or an
// unparseable numeric value.
func New() (Settings, error) {
	providerName := getEnv("LLM_PROVIDER", "openai")
	provider, err := llm.ParseProviderType(providerName)
	if err != nil {
		return Settings{}, err
	}

	maxTokens, err := getEnvInt("LLM_MAX_TOKENS", 2048)
	if err != nil {
		return Settings{}, err
	}
	temperature, err := getEnvFloat("LLM_TEMPERATURE", 0.2)
	if err != nil {
		return Settings{}, err
	}
	maxSteps, err := getEnvInt("AGENT_MAX_STEPS", 10)
	if err != nil {
		return Settings{}, err
	}
	maxFileBytes, err := getEnvInt64("INGEST_MAX_FILE_BYTES", 50*1024*1024)
	if err != nil {
		return Settings{}, err
	}
	batchSize, err := getEnvInt("INGEST_EMBED_BATCH_SIZE", 10)
	if err != nil {
		return Settings{}, err
	}
	heapLimit, err := getEnvInt64("INGEST_HEAP_LIMIT_BYTES", 1<<30)
	if err != nil {
		return Settings{}, err
	}
	maxFiles, err := getEnvInt("INGEST_MAX_FILES", 0)
	if err != nil {
		return Settings{}, err
	}

	model := getEnv("LLM_MODEL", provider.DefaultModel())

	return Settings{
		LLM: LLMConfig{
			Provider:     provider,
			Model:        model,
			MaxTokens:    maxTokens,
			Temperature:  float32(temperature),
			OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		},
		Agent: AgentConfig{
			MaxSteps: maxSteps,
		},
		Drive: DriveConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/oauth/callback"),
		},
		Ingest: IngestConfig{
			MaxFileBytes:   maxFileBytes,
			EmbedBatchSize: batchSize,
			HeapLimitBytes: uint64(heapLimit),
			MaxFiles:       maxFiles,
		},
		Tools: ToolsConfig{
			SerperAPIKey: os.Getenv("SERPER_API_KEY"),
		},
		DBPath: getEnv("LIBRA_DB_PATH", "libra.db"),
	}, nil
}

// APIKey returns the configured provider's API key from the environment.
func (s Settings) APIKey() (string, error) {
	envVar := s.LLM.Provider.EnvVar()
	key := os.Getenv(envVar)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", envVar)
	}
	return key, nil
}

// Environment variable helpers with proper error handling

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}
