package tools

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// SearchFunc is the injected web-search collaborator. It returns rendered
// result text for a query.
type SearchFunc func(ctx context.Context, query string) (string, error)

// Options carries the shared state the tool handlers close over.
type Options struct {
	// WorkDir anchors relative paths. Must be absolute.
	WorkDir string
	// MemoryFile is where save_memory persists facts.
	// Empty means ~/.skiff/GEMINI.md.
	MemoryFile string
	// Search handles web_search queries; nil means not configured.
	Search SearchFunc
	// HTTPClient serves web_fetch; nil gets a default with sane timeouts.
	HTTPClient *http.Client
	// ShellTimeout is the default foreground command timeout.
	// Zero means 300s.
	ShellTimeout time.Duration
	// OnShellOutput, when set, receives the accumulated output of a
	// foreground command at most once per second.
	OnShellOutput func(accumulated string)
	Logger        *slog.Logger
}

func (o *Options) normalize() {
	if o.WorkDir == "" {
		o.WorkDir, _ = os.Getwd()
	}
	if o.MemoryFile == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			o.MemoryFile = filepath.Join(home, ".skiff", "GEMINI.md")
		} else {
			o.MemoryFile = filepath.Join(o.WorkDir, ".skiff", "GEMINI.md")
		}
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: fetchTimeout}
	}
	if o.ShellTimeout <= 0 {
		o.ShellTimeout = defaultShellTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// RegisterAll registers the full built-in catalog on r.
func RegisterAll(r *Registry, opts Options) {
	opts.normalize()

	registerReadFileTool(r, opts)
	registerWriteFileTool(r, opts)
	registerReplaceTool(r, opts)
	registerShellTool(r, opts)
	registerGrepTool(r, opts)
	registerGlobTool(r, opts)
	registerListDirectoryTool(r, opts)
	registerReadManyFilesTool(r, opts)
	registerSaveMemoryTool(r, opts)
	registerWriteTodosTool(r, opts)
	registerAskUserTool(r, opts)
	registerWebFetchTool(r, opts)
	registerWebSearchTool(r, opts)
	registerCompleteTaskTool(r)
}
