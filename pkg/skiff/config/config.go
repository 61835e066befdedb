// Package config defines the YAML configuration for the skiff agent
// runtime and resolves credentials from the environment and the OS
// keyring.
package config

import "strings"

// ProviderKeyNames maps provider IDs to their conventional API key
// environment variables.
var ProviderKeyNames = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"google":     "GOOGLE_API_KEY",
	"groq":       "GROQ_API_KEY",
	"mistral":    "MISTRAL_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"deepseek":   "DEEPSEEK_API_KEY",
	"custom":     "CUSTOM_API_KEY",
}

// GetProviderKeyName returns the standard API key variable name for a
// provider, falling back to SKIFF_API_KEY for unknown ones.
func GetProviderKeyName(provider string) string {
	if name, ok := ProviderKeyNames[strings.ToLower(provider)]; ok {
		return name
	}
	return "SKIFF_API_KEY"
}

// Config holds the full runtime configuration.
type Config struct {
	// Name is the agent name used in the environment-context message.
	Name string `yaml:"name"`

	// Model is the LLM model identifier (e.g. "gpt-4o").
	Model string `yaml:"model"`

	// Instructions form the system prompt.
	Instructions string `yaml:"instructions"`

	// API configures the LLM provider endpoint.
	API APIConfig `yaml:"api"`

	// Agent configures loop limits and compaction.
	Agent AgentConfig `yaml:"agent"`

	// Tools configures the tool layer.
	Tools ToolsConfig `yaml:"tools"`

	// History configures the run-history store.
	History HistoryConfig `yaml:"history"`
}

// APIConfig configures the chat-completions endpoint.
type APIConfig struct {
	Provider       string  `yaml:"provider"`
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
}

// AgentConfig configures the loop and the context compactor.
type AgentConfig struct {
	MaxTurns          int  `yaml:"max_turns"`
	TimeoutSeconds    int  `yaml:"timeout_seconds"`
	InjectEnvironment bool `yaml:"inject_environment"`
	MaxScanItems      int  `yaml:"max_scan_items"`

	MaxContextTokens int              `yaml:"max_context_tokens"`
	Compaction       CompactionConfig `yaml:"compaction"`

	// Estimator selects the token counter: "heuristic" (default) or
	// "tiktoken".
	Estimator string `yaml:"estimator"`
}

// CompactionConfig tunes the context compactor. Zero values mean the
// built-in defaults.
type CompactionConfig struct {
	Threshold        float64 `yaml:"threshold"`
	PreserveRatio    float64 `yaml:"preserve_ratio"`
	ToolOutputBudget int     `yaml:"tool_output_budget"`
	TruncateLines    int     `yaml:"truncate_lines"`
	Aggressive       bool    `yaml:"aggressive"`
}

// ToolsConfig configures the tool layer.
type ToolsConfig struct {
	// MemoryFile overrides the default ~/.skiff/GEMINI.md memory file.
	MemoryFile string `yaml:"memory_file"`

	// ShellTimeoutSeconds bounds foreground shell commands.
	ShellTimeoutSeconds int `yaml:"shell_timeout_seconds"`

	// SearchAPIKey enables the web_search tool when set.
	SearchAPIKey string `yaml:"search_api_key"`

	// SearchEndpoint is the search backend URL.
	SearchEndpoint string `yaml:"search_endpoint"`
}

// HistoryConfig configures the SQLite run store.
type HistoryConfig struct {
	// Path to the database file; empty means ~/.skiff/history.db.
	Path string `yaml:"path"`

	// Disabled turns run recording off entirely.
	Disabled bool `yaml:"disabled"`
}

// Default returns the baseline configuration that YAML values overlay.
func Default() *Config {
	return &Config{
		Name:  "skiff agent",
		Model: "gpt-4o-mini",
		API: APIConfig{
			Provider:       "openai",
			BaseURL:        "https://api.openai.com/v1",
			TimeoutSeconds: 120,
			MaxRetries:     3,
			Temperature:    0.2,
		},
		Agent: AgentConfig{
			MaxTurns:          50,
			TimeoutSeconds:    0,
			InjectEnvironment: true,
			MaxScanItems:      200,
			MaxContextTokens:  128_000,
			Estimator:         "heuristic",
		},
		Tools: ToolsConfig{
			ShellTimeoutSeconds: 300,
		},
	}
}
