// Package scan builds bounded folder-structure trees for environment
// context. The walk is breadth-first with a global item budget so huge
// workspaces produce a useful overview instead of an unbounded dump.
package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxItems bounds the total number of files and folders reported.
const DefaultMaxItems = 200

// DefaultIgnore holds folder names whose contents are never descended
// into; the folder itself still appears as an ignored placeholder.
var DefaultIgnore = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
}

// Node is one folder in the scanned tree.
type Node struct {
	Name              string
	Files             []string
	SubFolders        []*Node
	HasMoreFiles      bool
	HasMoreSubfolders bool
	IsIgnored         bool
}

type queueItem struct {
	node *Node
	path string
}

// Scan walks root breadth-first up to maxItems total entries. A nil
// ignore set means DefaultIgnore.
func Scan(root string, maxItems int, ignore map[string]bool) (*Node, error) {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if ignore == nil {
		ignore = DefaultIgnore
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "scan", Path: root, Err: os.ErrInvalid}
	}

	rootNode := &Node{Name: filepath.Base(root)}
	budget := maxItems
	queue := []queueItem{{node: rootNode, path: root}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(item.path)
		if err != nil {
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		// Files consume the budget before subfolders so every listed
		// directory shows its contents rather than a bare name.
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if budget <= 0 {
				item.node.HasMoreFiles = true
				break
			}
			item.node.Files = append(item.node.Files, entry.Name())
			budget--
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if budget <= 0 {
				item.node.HasMoreSubfolders = true
				break
			}
			child := &Node{Name: entry.Name()}
			budget--
			if ignore[entry.Name()] {
				child.IsIgnored = true
				item.node.SubFolders = append(item.node.SubFolders, child)
				continue
			}
			item.node.SubFolders = append(item.node.SubFolders, child)
			queue = append(queue, queueItem{node: child, path: filepath.Join(item.path, entry.Name())})
		}
	}
	return rootNode, nil
}

// Format renders the tree with box-drawing connectors, headed by the
// absolute root path.
func Format(root *Node, rootPath string) string {
	var b strings.Builder
	b.WriteString(rootPath + string(filepath.Separator) + "\n")
	formatChildren(&b, root, "")
	return strings.TrimRight(b.String(), "\n")
}

func formatChildren(b *strings.Builder, node *Node, prefix string) {
	type line struct {
		text  string
		child *Node
	}
	var lines []line
	for _, f := range node.Files {
		lines = append(lines, line{text: f})
	}
	if node.HasMoreFiles {
		lines = append(lines, line{text: "..."})
	}
	for _, sub := range node.SubFolders {
		text := sub.Name + "/"
		if sub.IsIgnored {
			text += "..."
		}
		lines = append(lines, line{text: text, child: sub})
	}
	if node.HasMoreSubfolders {
		lines = append(lines, line{text: "..."})
	}

	for i, ln := range lines {
		connector := "├───"
		childPrefix := prefix + "│   "
		if i == len(lines)-1 {
			connector = "└───"
			childPrefix = prefix + "    "
		}
		b.WriteString(prefix + connector + ln.text + "\n")
		if ln.child != nil && !ln.child.IsIgnored {
			formatChildren(b, ln.child, childPrefix)
		}
	}
}
