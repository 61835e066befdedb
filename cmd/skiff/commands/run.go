package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skiffworks/skiff/pkg/skiff/agent"
	"github.com/skiffworks/skiff/pkg/skiff/config"
	"github.com/skiffworks/skiff/pkg/skiff/history"
	"github.com/skiffworks/skiff/pkg/skiff/llm"
	"github.com/skiffworks/skiff/pkg/skiff/tools"
	"github.com/skiffworks/skiff/pkg/skiff/trace"
)

const tracerDumpFile = "skiff_in_memory_tracer.json"

// newRunCmd creates `skiff run`, the single-shot agent loop.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent loop for one query",
		Long: `Runs the agent loop until the model calls complete_task or a
termination condition fires. The in-memory trace is dumped as JSON into
the log directory. The process exits 0 whenever the loop completes,
whatever the terminate reason; non-zero exits are reserved for
invocation and configuration errors.`,
		RunE: runRun,
	}

	cmd.Flags().String("config_path", "", "path to the YAML config file")
	cmd.Flags().String("query", "", "the user query to run")
	cmd.Flags().String("log_dir_path", "", "directory receiving the trace dump")
	cmd.Flags().String("working_dir", "", "working directory for tools (default: current directory)")
	_ = cmd.MarkFlagRequired("config_path")
	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagRequired("log_dir_path")

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config_path")
	query, _ := cmd.Flags().GetString("query")
	logDir, _ := cmd.Flags().GetString("log_dir_path")
	workingDir, _ := cmd.Flags().GetString("working_dir")

	logger := newLogger(cmd)

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return err
	}
	config.ResolveAPIKey(cfg, logger)
	if cfg.API.APIKey == "" {
		return fmt.Errorf("no API key configured (keyring, %s or config)", config.GetProviderKeyName(cfg.API.Provider))
	}

	if workingDir == "" {
		workingDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
	}
	workingDir, err = filepath.Abs(workingDir)
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "skiff-*")
	if err != nil {
		return fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := llm.NewHTTPClient(cfg.API.BaseURL, cfg.API.APIKey, cfg.Model, llm.ClientOptions{
		MaxRetries:  cfg.API.MaxRetries,
		Temperature: &cfg.API.Temperature,
		MaxTokens:   maxTokensOpt(cfg.API.MaxTokens),
		Timeout:     time.Duration(cfg.API.TimeoutSeconds) * time.Second,
	}, logger)

	registry := tools.NewRegistry(logger)
	tools.RegisterAll(registry, tools.Options{
		WorkDir:      workingDir,
		MemoryFile:   cfg.Tools.MemoryFile,
		Search:       newSearchFunc(cfg),
		ShellTimeout: time.Duration(cfg.Tools.ShellTimeoutSeconds) * time.Second,
		OnShellOutput: func(out string) {
			logger.Debug("shell output update", "bytes", len(out))
		},
		Logger: logger,
	})

	mem := trace.NewInMemory()
	tracer := trace.Multi{mem, trace.NewSlog(logger)}

	estimator := newEstimator(cfg, logger)
	compactor := agent.NewCompactor(agent.CompactionOptions{
		MaxContextTokens: cfg.Agent.MaxContextTokens,
		Threshold:        cfg.Agent.Compaction.Threshold,
		PreserveRatio:    cfg.Agent.Compaction.PreserveRatio,
		ToolOutputBudget: cfg.Agent.Compaction.ToolOutputBudget,
		TruncateLines:    cfg.Agent.Compaction.TruncateLines,
		Aggressive:       cfg.Agent.Compaction.Aggressive,
	}, estimator, nil, tracer, logger)

	pipeline := agent.NewPipeline(
		compactor.Middleware(),
		agent.NewTerminationMiddleware(logger),
		newAskUserMiddleware(logger),
	)

	runner := agent.NewRunner(client, registry, pipeline, tracer, logger, agent.RunnerOptions{
		SystemPrompt:      cfg.Instructions,
		MaxTurns:          cfg.Agent.MaxTurns,
		Deadline:          time.Duration(cfg.Agent.TimeoutSeconds) * time.Second,
		InjectEnvironment: cfg.Agent.InjectEnvironment,
		EnvContext: agent.EnvContext{
			AgentName:  cfg.Name,
			WorkingDir: workingDir,
			TempDir:    tempDir,
			MaxItems:   cfg.Agent.MaxScanItems,
		},
	})

	startedAt := time.Now()
	result, runErr := runner.Run(ctx, query)

	dumpTraces(mem, logDir, logger)
	recordRun(cfg, logger, history.Run{
		StartedAt:        startedAt,
		FinishedAt:       time.Now(),
		Query:            query,
		TerminateReason:  string(result.TerminateReason),
		FinalResult:      result.FinalResult,
		Turns:            result.Turns,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
	})

	if runErr != nil {
		return runErr
	}

	if result.FinalResult != "" {
		fmt.Fprintln(cmd.OutOrStdout(), result.FinalResult)
	}
	if result.TerminateReason != agent.TerminateGoal {
		fmt.Fprintf(cmd.ErrOrStderr(), "Loop terminated: %s after %d turn(s)\n",
			result.TerminateReason, result.Turns)
	}
	return nil
}

func maxTokensOpt(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

func newEstimator(cfg *config.Config, logger *slog.Logger) agent.Estimator {
	if cfg.Agent.Estimator != "tiktoken" {
		return agent.HeuristicEstimator{}
	}
	est, err := agent.NewTiktokenEstimator("")
	if err != nil {
		logger.Warn("tiktoken estimator unavailable, falling back to heuristic", "error", err)
		return agent.HeuristicEstimator{}
	}
	return est
}

// newSearchFunc builds the web_search backend from config, or nil when
// no search API key is configured.
func newSearchFunc(cfg *config.Config) tools.SearchFunc {
	if cfg.Tools.SearchAPIKey == "" || cfg.Tools.SearchEndpoint == "" {
		return nil
	}
	endpoint := cfg.Tools.SearchEndpoint
	apiKey := cfg.Tools.SearchAPIKey
	httpClient := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, query string) (string, error) {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", fmt.Errorf("invalid search endpoint: %w", err)
		}
		q := u.Query()
		q.Set("q", query)
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return "", err
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("search backend returned %d", resp.StatusCode)
		}
		return string(body), nil
	}
}

func dumpTraces(mem *trace.InMemory, logDir string, logger *slog.Logger) {
	data, err := mem.DumpTraces()
	if err != nil {
		logger.Warn("failed to serialize traces", "error", err)
		return
	}
	path := filepath.Join(logDir, tracerDumpFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Warn("failed to write trace dump", "path", path, "error", err)
	}
}

// recordRun persists the run in the history store. Failures are
// logged, never fatal.
func recordRun(cfg *config.Config, logger *slog.Logger, run history.Run) {
	if cfg.History.Disabled {
		return
	}
	dbPath := cfg.History.Path
	if dbPath == "" {
		var err error
		dbPath, err = history.DefaultPath()
		if err != nil {
			logger.Warn("run history disabled", "error", err)
			return
		}
	}
	store, err := history.Open(dbPath, logger)
	if err != nil {
		logger.Warn("failed to open history store", "error", err)
		return
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := store.Record(ctx, run); err != nil {
		logger.Warn("failed to record run", "error", err)
	}
}
