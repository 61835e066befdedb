package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSearchFileContentFindsMatches(t *testing.T) {
	o := editOptions(t)
	writeTestFile(t, o.WorkDir, "a.go", "package a\n\nfunc HandleRequest() {}\n")
	writeTestFile(t, o.WorkDir, "b.go", "package b\n\n// handleRequest is unexported here\nfunc handleRequest() {}\n")
	writeTestFile(t, o.WorkDir, "c.txt", "nothing relevant\n")

	res := searchFileContent(context.Background(), o, map[string]any{"pattern": "handleRequest"})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	text := res.ContentText()
	if !strings.Contains(text, "File: a.go") || !strings.Contains(text, "File: b.go") {
		t.Errorf("file grouping missing: %q", text)
	}
	// Matching is case-insensitive across every strategy.
	if !strings.Contains(text, "L3: func HandleRequest() {}") {
		t.Errorf("match line missing: %q", text)
	}
	if strings.Contains(text, "c.txt") {
		t.Errorf("non-matching file listed: %q", text)
	}
}

func TestSearchFileContentIncludeFilter(t *testing.T) {
	o := editOptions(t)
	writeTestFile(t, o.WorkDir, "main.go", "var token = 1\n")
	writeTestFile(t, o.WorkDir, "notes.md", "token here too\n")

	res := searchFileContent(context.Background(), o, map[string]any{
		"pattern": "token",
		"include": "*.go",
	})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	text := res.ContentText()
	if !strings.Contains(text, "main.go") {
		t.Errorf("included file missing: %q", text)
	}
	if strings.Contains(text, "notes.md") {
		t.Errorf("filtered file leaked: %q", text)
	}
	if !strings.Contains(text, `(filter: "*.go")`) {
		t.Errorf("filter note missing: %q", text)
	}
}

func TestSearchFileContentNoMatches(t *testing.T) {
	o := editOptions(t)
	writeTestFile(t, o.WorkDir, "a.txt", "hello\n")

	res := searchFileContent(context.Background(), o, map[string]any{"pattern": "zzzznope"})
	if res.IsError() {
		t.Fatalf("no matches is not an error: %+v", res.Error)
	}
	if !strings.Contains(res.ContentText(), `No matches found for pattern "zzzznope"`) {
		t.Errorf("unexpected message: %q", res.ContentText())
	}
}

func TestSearchFileContentInvalidPattern(t *testing.T) {
	o := editOptions(t)
	res := searchFileContent(context.Background(), o, map[string]any{"pattern": "([unclosed"})
	if !res.IsError() || res.Error.Type != ErrInvalidPattern {
		t.Fatalf("expected INVALID_PATTERN, got %+v", res.Error)
	}
}

func TestSearchFileContentMissingDir(t *testing.T) {
	o := editOptions(t)
	res := searchFileContent(context.Background(), o, map[string]any{
		"pattern":  "x",
		"dir_path": "does-not-exist",
	})
	if !res.IsError() || res.Error.Type != ErrFileNotFound {
		t.Fatalf("expected FILE_NOT_FOUND, got %+v", res.Error)
	}
}

func TestSearchFileContentPathIsFile(t *testing.T) {
	o := editOptions(t)
	writeTestFile(t, o.WorkDir, "a.txt", "hello\n")

	res := searchFileContent(context.Background(), o, map[string]any{
		"pattern":  "hello",
		"dir_path": "a.txt",
	})
	if !res.IsError() || res.Error.Type != ErrNotADirectory {
		t.Fatalf("expected NOT_A_DIRECTORY, got %+v", res.Error)
	}
}

func TestWalkerGrepSkipsExcludedDirs(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "keep.txt", "needle\n")
	subdir := filepath.Join(dir, "node_modules")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, subdir, "dep.txt", "needle\n")

	matches := walkerGrep(context.Background(), "needle", dir, "")
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d: %+v", len(matches), matches)
	}
	if matches[0].filePath != "keep.txt" {
		t.Errorf("wrong file: %q", matches[0].filePath)
	}
}

func TestParseGrepOutput(t *testing.T) {
	out := "a.go:3:func main() {\nmalformed line\nb.go:10:\treturn\n"
	matches := parseGrepOutput(out, t.TempDir())
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].filePath != "a.go" || matches[0].lineNumber != 3 {
		t.Errorf("first match wrong: %+v", matches[0])
	}
	if matches[1].lineNumber != 10 {
		t.Errorf("second match wrong: %+v", matches[1])
	}
}
