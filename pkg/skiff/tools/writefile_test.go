package tools

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileCreate(t *testing.T) {
	o := editOptions(t)
	path := filepath.Join(o.WorkDir, "deep", "dir", "new.txt")

	res := writeFile(o, map[string]any{
		"file_path": path,
		"content":   "hello\nworld\n",
	})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	if !strings.Contains(res.ContentText(), "Successfully created and wrote to new file") {
		t.Errorf("unexpected message: %q", res.ContentText())
	}
	if res.Data["operation"] != "create" {
		t.Errorf("expected create, got %v", res.Data["operation"])
	}
	if got := readTestFile(t, path); got != "hello\nworld\n" {
		t.Errorf("content wrong: %q", got)
	}
}

func TestWriteFileOverwriteWithDiff(t *testing.T) {
	o := editOptions(t)
	path := writeTestFile(t, o.WorkDir, "o.txt", "old line\nshared\n")

	res := writeFile(o, map[string]any{
		"file_path": path,
		"content":   "new line\nshared\n",
	})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	if !strings.Contains(res.ContentText(), "Successfully overwrote file") {
		t.Errorf("unexpected message: %q", res.ContentText())
	}
	if !strings.Contains(res.ReturnDisplay, "-old line") ||
		!strings.Contains(res.ReturnDisplay, "+new line") {
		t.Errorf("diff missing from display: %q", res.ReturnDisplay)
	}
}

func TestWriteFileTargetIsDirectory(t *testing.T) {
	o := editOptions(t)
	res := writeFile(o, map[string]any{
		"file_path": o.WorkDir,
		"content":   "x",
	})
	if !res.IsError() || res.Error.Type != ErrTargetIsDirectory {
		t.Fatalf("expected TARGET_IS_DIRECTORY, got %+v", res.Error)
	}
}

func TestWriteFileKeepsCRLFConvention(t *testing.T) {
	o := editOptions(t)
	path := writeTestFile(t, o.WorkDir, "win.txt", "a\r\nb\r\n")

	res := writeFile(o, map[string]any{
		"file_path": path,
		"content":   "x\ny\n",
	})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	if got := readTestFile(t, path); got != "x\r\ny\r\n" {
		t.Errorf("CRLF convention not preserved on overwrite: %q", got)
	}
}

func TestWriteFileMissingContent(t *testing.T) {
	o := editOptions(t)
	res := writeFile(o, map[string]any{"file_path": "x.txt"})
	if !res.IsError() || res.Error.Type != ErrInvalidInput {
		t.Fatalf("expected INVALID_INPUT, got %+v", res.Error)
	}
}
