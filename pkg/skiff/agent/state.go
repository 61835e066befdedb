package agent

import "github.com/skiffworks/skiff/pkg/skiff/llm"

// TerminateReason explains why a run stopped.
type TerminateReason string

const (
	TerminateGoal           TerminateReason = "GOAL"
	TerminateMaxTurns       TerminateReason = "MAX_TURNS"
	TerminateTimeout        TerminateReason = "TIMEOUT"
	TerminateNoCompleteCall TerminateReason = "ERROR_NO_COMPLETE_TASK_CALL"
	TerminateError          TerminateReason = "ERROR"
	TerminateCancelled      TerminateReason = "CANCELLED"
)

// State is the mutable per-run record shared with middlewares. Storage
// holds diagnostic counters (compaction stats, grace flags) keyed by
// plain strings.
type State struct {
	Messages        []llm.Message
	TurnCount       int
	TerminateReason TerminateReason
	FinalResult     string
	Storage         map[string]any
	Usage           llm.Usage
}

func NewState() *State {
	return &State{Storage: map[string]any{}}
}

// Result is what Runner.Run hands back once the loop exits.
type Result struct {
	FinalResult     string
	TerminateReason TerminateReason
	Turns           int
	Usage           llm.Usage
	Messages        []llm.Message
}
