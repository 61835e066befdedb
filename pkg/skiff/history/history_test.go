package history

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Record(ctx, Run{
		StartedAt:        time.Now().Add(-time.Minute),
		FinishedAt:       time.Now(),
		Query:            "fix the build",
		TerminateReason:  "GOAL",
		FinalResult:      "build fixed",
		Turns:            4,
		PromptTokens:     1200,
		CompletionTokens: 300,
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected a generated id")
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Query != "fix the build" || got.TerminateReason != "GOAL" || got.Turns != 4 {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
	if got.PromptTokens != 1200 || got.CompletionTokens != 300 {
		t.Errorf("token counts lost: %+v", got)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := store.Record(ctx, Run{
			StartedAt:       base.Add(time.Duration(i) * time.Minute),
			FinishedAt:      base.Add(time.Duration(i)*time.Minute + 30*time.Second),
			Query:           "query",
			TerminateReason: "GOAL",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	for i := 1; i < len(runs); i++ {
		if runs[i].StartedAt.After(runs[i-1].StartedAt) {
			t.Error("runs not ordered newest first")
		}
	}
}

func TestListLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := store.Record(ctx, Run{
			StartedAt:       time.Now().Add(time.Duration(i) * time.Second),
			FinishedAt:      time.Now(),
			Query:           "q",
			TerminateReason: "MAX_TURNS",
		}); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("limit ignored: got %d runs", len(runs))
	}
}

func TestGetMissingRun(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Get(context.Background(), "no-such-id"); err == nil {
		t.Fatal("expected error for unknown run id")
	}
}
