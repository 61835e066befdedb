package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skiffworks/skiff/pkg/skiff/llm"
)

func TestReadFileNumbersLines(t *testing.T) {
	o := editOptions(t)
	path := writeTestFile(t, o.WorkDir, "f.txt", "alpha\nbeta\ngamma\n")

	res := readFile(o, map[string]any{"file_path": path})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	text := res.ContentText()
	for _, want := range []string{"1| alpha", "2| beta", "3| gamma"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing numbered line %q in %q", want, text)
		}
	}
	if strings.Contains(text, "truncated") {
		t.Error("small file must not be reported as truncated")
	}
}

func TestReadFileOffsetLimitTruncation(t *testing.T) {
	o := editOptions(t)
	var b strings.Builder
	for i := 1; i <= 50; i++ {
		fmt.Fprintf(&b, "line-%d\n", i)
	}
	path := writeTestFile(t, o.WorkDir, "long.txt", b.String())

	res := readFile(o, map[string]any{
		"file_path": path,
		"offset":    10,
		"limit":     5,
	})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	text := res.ContentText()
	if !strings.Contains(text, "IMPORTANT: The file content has been truncated.") {
		t.Errorf("truncation notice missing: %q", text)
	}
	if !strings.Contains(text, "Status: Showing lines 11-15 of 50 total lines.") {
		t.Errorf("status line wrong: %q", text)
	}
	if !strings.Contains(text, "use offset: 15") {
		t.Errorf("next offset hint wrong: %q", text)
	}
	if got, _ := res.Data["next_offset"].(int); got != 15 {
		t.Errorf("next_offset data wrong: %v", res.Data["next_offset"])
	}
	if !strings.Contains(text, "11| line-11") || strings.Contains(text, "line-16") {
		t.Errorf("wrong slice returned: %q", text)
	}
}

func TestReadFileMissing(t *testing.T) {
	o := editOptions(t)
	res := readFile(o, map[string]any{"file_path": filepath.Join(o.WorkDir, "nope.txt")})
	if !res.IsError() || res.Error.Type != ErrFileNotFound {
		t.Fatalf("expected FILE_NOT_FOUND, got %+v", res.Error)
	}
}

func TestReadFileDirectory(t *testing.T) {
	o := editOptions(t)
	res := readFile(o, map[string]any{"file_path": o.WorkDir})
	if !res.IsError() || res.Error.Type != ErrPathIsDirectory {
		t.Fatalf("expected PATH_IS_DIRECTORY, got %+v", res.Error)
	}
}

func TestReadFileBinaryInlineData(t *testing.T) {
	o := editOptions(t)
	// Minimal single-pixel PNG header bytes are enough; the tool does
	// not decode the image.
	path := filepath.Join(o.WorkDir, "img.png")
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, 0o644); err != nil {
		t.Fatal(err)
	}

	res := readFile(o, map[string]any{"file_path": path})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	inline, ok := res.LLMContent.(llm.InlineData)
	if !ok {
		t.Fatalf("expected inline data, got %T", res.LLMContent)
	}
	if inline.MIMEType != "image/png" {
		t.Errorf("wrong mime type: %q", inline.MIMEType)
	}
	if inline.Data == "" {
		t.Error("base64 payload missing")
	}
}

func TestReadFileLatin1Fallback(t *testing.T) {
	o := editOptions(t)
	// 0xE9 is 'é' in latin-1 and invalid standalone UTF-8.
	path := filepath.Join(o.WorkDir, "l1.txt")
	if err := os.WriteFile(path, []byte{'c', 'a', 'f', 0xE9, '\n'}, 0o644); err != nil {
		t.Fatal(err)
	}

	res := readFile(o, map[string]any{"file_path": path})
	if res.IsError() {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	if !strings.Contains(res.ContentText(), "café") {
		t.Errorf("latin-1 fallback failed: %q", res.ContentText())
	}
}
