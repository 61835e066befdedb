package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadManyFilesConcatenates(t *testing.T) {
	o := editOptions(t)
	aPath := writeTestFile(t, o.WorkDir, "a.txt", "first file")
	bPath := writeTestFile(t, o.WorkDir, "b.txt", "second file")

	res := readManyFiles(o, map[string]any{"include": []any{"*.txt"}})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	text := res.ContentText()
	for _, want := range []string{
		"--- " + aPath + " ---",
		"first file",
		"--- " + bPath + " ---",
		"second file",
		"--- END OF FILES ---",
		"Successfully read 2 file(s)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in output:\n%s", want, text)
		}
	}
	if res.Data["files_read"] != 2 {
		t.Errorf("files_read = %v", res.Data["files_read"])
	}
}

func TestReadManyFilesDirectPath(t *testing.T) {
	o := editOptions(t)
	writeTestFile(t, o.WorkDir, "only.md", "# doc")

	res := readManyFiles(o, map[string]any{"include": []any{"only.md"}})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	if !strings.Contains(res.ContentText(), "# doc") {
		t.Errorf("content missing: %q", res.ContentText())
	}
}

func TestReadManyFilesDefaultExcludes(t *testing.T) {
	o := editOptions(t)
	os.MkdirAll(filepath.Join(o.WorkDir, "node_modules"), 0o755)
	writeTestFile(t, filepath.Join(o.WorkDir, "node_modules"), "dep.js", "module.exports = 1")
	writeTestFile(t, o.WorkDir, "app.js", "console.log(1)")

	res := readManyFiles(o, map[string]any{"include": []any{"**/*.js"}})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	text := res.ContentText()
	if !strings.Contains(text, "app.js") {
		t.Errorf("expected file missing: %q", text)
	}
	if strings.Contains(text, "module.exports") {
		t.Errorf("excluded file content leaked: %q", text)
	}
	if !strings.Contains(text, "excluded by pattern") {
		t.Errorf("skip reason missing: %q", text)
	}
}

func TestReadManyFilesExplicitExclude(t *testing.T) {
	o := editOptions(t)
	writeTestFile(t, o.WorkDir, "keep.txt", "keep me")
	writeTestFile(t, o.WorkDir, "drop.txt", "drop me")

	res := readManyFiles(o, map[string]any{
		"include": []any{"*.txt"},
		"exclude": []any{"drop.txt"},
	})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	text := res.ContentText()
	if strings.Contains(text, "drop me") {
		t.Errorf("excluded content leaked: %q", text)
	}
	if !strings.Contains(text, "keep me") {
		t.Errorf("kept content missing: %q", text)
	}
}

func TestReadManyFilesSkipsBinary(t *testing.T) {
	o := editOptions(t)
	binPath := filepath.Join(o.WorkDir, "blob.bin")
	if err := os.WriteFile(binPath, []byte{0x00, 0x01, 0x02, 0xFF}, 0o644); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, o.WorkDir, "plain.txt", "text")

	res := readManyFiles(o, map[string]any{"include": []any{"blob.bin", "plain.txt"}})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	text := res.ContentText()
	if !strings.Contains(text, "blob.bin (Binary file)") {
		t.Errorf("binary skip note missing: %q", text)
	}
	if !strings.Contains(text, "text") {
		t.Errorf("text file missing: %q", text)
	}
}

func TestReadManyFilesNoMatches(t *testing.T) {
	o := editOptions(t)
	res := readManyFiles(o, map[string]any{"include": []any{"*.nope"}})
	if res.IsError() {
		t.Fatalf("no matches is not an error: %+v", res.Error)
	}
	if !strings.Contains(res.ContentText(), "No files found matching the patterns: *.nope") {
		t.Errorf("unexpected message: %q", res.ContentText())
	}
}

func TestReadManyFilesEmptyInclude(t *testing.T) {
	o := editOptions(t)
	res := readManyFiles(o, map[string]any{"include": []any{}})
	if !res.IsError() || res.Error.Type != ErrInvalidInput {
		t.Fatalf("expected INVALID_INPUT, got %+v", res.Error)
	}
}
