package tools

import "context"

// CompleteTaskToolName is the terminator the model must call to finish a
// run. The termination middleware intercepts it before dispatch, so the
// handler below only fires if the middleware is absent.
const CompleteTaskToolName = "complete_task"

func registerCompleteTaskTool(r *Registry) {
	r.Register(Tool{
		Name: CompleteTaskToolName,
		Description: "Declares the task finished and provides the final result. Call this " +
			"exactly once, as the last action, with a complete summary of the outcome.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"result": map[string]any{
					"type":        "string",
					"description": "The final result or summary of the completed task",
				},
			},
			"required": []string{"result"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			return TextResult("Task completion acknowledged.")
		},
	})
}
