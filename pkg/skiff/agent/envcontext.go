package agent

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/skiffworks/skiff/pkg/skiff/llm"
	"github.com/skiffworks/skiff/pkg/skiff/scan"
)

// EnvContext describes the machine and workspace for the model's
// benefit. It is rendered once, into a synthetic user message injected
// on the first turn.
type EnvContext struct {
	AgentName  string
	WorkingDir string
	TempDir    string
	MaxItems   int
	Now        time.Time
	Ignore     map[string]bool
}

// Message renders the environment-context message, including a bounded
// scan of the working directory.
func (e EnvContext) Message() llm.Message {
	maxItems := e.MaxItems
	if maxItems <= 0 {
		maxItems = scan.DefaultMaxItems
	}
	now := e.Now
	if now.IsZero() {
		now = time.Now()
	}
	tempDir := e.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	ignore := e.Ignore
	if ignore == nil {
		ignore = scan.DefaultIgnore
	}

	var tree string
	root, err := scan.Scan(e.WorkingDir, maxItems, ignore)
	if err != nil {
		tree = fmt.Sprintf("(folder structure unavailable: %v)", err)
	} else {
		tree = scan.Format(root, e.WorkingDir)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "This is the %s. We are setting up the context for our chat.\n", e.AgentName)
	fmt.Fprintf(&b, "Today's date is %s.\n", now.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "My operating system is: %s.\n", strings.ToLower(runtime.GOOS))
	fmt.Fprintf(&b, "The project's temporary directory is: %s.\n", tempDir)
	fmt.Fprintf(&b, "I'm currently working in the directory: %s.\n", e.WorkingDir)
	b.WriteString("Here is the folder structure of the current working directories:\n\n")
	fmt.Fprintf(&b, "Showing up to %d items (files + folders).\n\n", maxItems)
	b.WriteString(tree)
	b.WriteString("\n\nReminder: Do not return an empty response when a tool call is required.\n")
	b.WriteString("My setup is complete. I will provide my first command in the next turn.")
	return llm.UserMessage(b.String())
}
