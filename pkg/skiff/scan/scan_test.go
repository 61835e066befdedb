package scan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mkTree(t *testing.T, root string, dirs []string, files []string) {
	t.Helper()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanBasicTree(t *testing.T) {
	root := t.TempDir()
	mkTree(t, root,
		[]string{"pkg"},
		[]string{"main.go", "go.mod", "pkg/util.go"})

	node, err := Scan(root, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := node.Files; len(got) != 2 || got[0] != "go.mod" || got[1] != "main.go" {
		t.Errorf("root files = %v", got)
	}
	if len(node.SubFolders) != 1 || node.SubFolders[0].Name != "pkg" {
		t.Fatalf("subfolders = %+v", node.SubFolders)
	}
	if got := node.SubFolders[0].Files; len(got) != 1 || got[0] != "util.go" {
		t.Errorf("pkg files = %v", got)
	}
}

func TestScanIgnoredFolderIsPlaceholder(t *testing.T) {
	root := t.TempDir()
	mkTree(t, root,
		[]string{"node_modules/dep", "src"},
		[]string{"node_modules/dep/index.js", "src/app.js"})

	node, err := Scan(root, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	var nm *Node
	for _, sub := range node.SubFolders {
		if sub.Name == "node_modules" {
			nm = sub
		}
	}
	if nm == nil {
		t.Fatal("node_modules placeholder missing")
	}
	if !nm.IsIgnored {
		t.Error("node_modules must be marked ignored")
	}
	if len(nm.Files) != 0 || len(nm.SubFolders) != 0 {
		t.Errorf("ignored folder was descended into: %+v", nm)
	}
}

func TestScanBudgetBreadthFirst(t *testing.T) {
	root := t.TempDir()
	mkTree(t, root,
		[]string{"deep/deeper"},
		[]string{"a.txt", "b.txt", "c.txt", "deep/d.txt", "deep/deeper/e.txt"})

	// Budget of 4: three root files plus the "deep" folder itself.
	node, err := Scan(root, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(node.Files) != 3 {
		t.Errorf("root files = %v", node.Files)
	}
	if len(node.SubFolders) != 1 {
		t.Fatalf("subfolders = %+v", node.SubFolders)
	}
	deep := node.SubFolders[0]
	if len(deep.Files) != 0 || !deep.HasMoreFiles {
		t.Errorf("budget exhaustion not reflected in deep: %+v", deep)
	}
}

func TestScanMoreFilesMarker(t *testing.T) {
	root := t.TempDir()
	mkTree(t, root, nil, []string{"a.txt", "b.txt", "c.txt"})

	node, err := Scan(root, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(node.Files) != 2 || !node.HasMoreFiles {
		t.Errorf("truncation marker wrong: files=%v hasMore=%v", node.Files, node.HasMoreFiles)
	}
}

func TestScanRejectsFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "plain.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Scan(path, 0, nil); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

func TestScanMissingRoot(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "gone"), 0, nil); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestFormatConnectors(t *testing.T) {
	root := t.TempDir()
	mkTree(t, root,
		[]string{"src", "node_modules"},
		[]string{"go.mod", "src/main.go"})

	node, err := Scan(root, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	out := Format(node, root)

	if !strings.HasPrefix(out, root+string(filepath.Separator)) {
		t.Errorf("header missing: %q", out)
	}
	for _, want := range []string{
		"├───go.mod",
		"├───node_modules/...",
		"└───src/",
		"    └───main.go",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "index.js") {
		t.Errorf("ignored contents rendered:\n%s", out)
	}
}

func TestFormatMoreMarkers(t *testing.T) {
	root := t.TempDir()
	mkTree(t, root, nil, []string{"a.txt", "b.txt", "c.txt"})

	node, err := Scan(root, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	out := Format(node, root)
	if !strings.Contains(out, "└───...") {
		t.Errorf("truncation line missing:\n%s", out)
	}
}
