package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	grepMaxMatches    = 500
	grepSearchTimeout = 30 * time.Second
)

// grepLineRe parses "path:line:content" output from the external tools.
var grepLineRe = regexp.MustCompile(`^(.+?):(\d+):(.*)$`)

type grepMatch struct {
	filePath   string
	lineNumber int
	line       string
}

func registerGrepTool(r *Registry, o Options) {
	r.Register(Tool{
		Name: "search_file_content",
		Description: "Searches file contents for a regular expression, returning matching " +
			"lines with file paths and line numbers. Uses git grep inside repositories, " +
			"system grep elsewhere, and an in-process scan as a last resort.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "The regular expression to search for",
				},
				"dir_path": map[string]any{
					"type":        "string",
					"description": "Directory to search in (defaults to the working directory)",
				},
				"include": map[string]any{
					"type":        "string",
					"description": "Glob filter for file names (e.g. \"*.go\")",
				},
			},
			"required": []string{"pattern"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			return searchFileContent(ctx, o, args)
		},
	})
}

func searchFileContent(ctx context.Context, o Options, args map[string]any) Result {
	pattern := strArg(args, "pattern")
	if pattern == "" {
		return ErrorResult(ErrInvalidPattern, "The 'pattern' parameter cannot be empty.")
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return ErrorResult(ErrInvalidPattern,
			"Invalid regular expression pattern: %s. Error: %v", pattern, err)
	}

	searchPath := o.WorkDir
	dirDisplay := "."
	if dp := strArg(args, "dir_path"); dp != "" {
		dirDisplay = dp
		searchPath = resolvePath(dp, o.WorkDir)
		info, err := os.Stat(searchPath)
		if err != nil {
			return ErrorResult(ErrFileNotFound, "Path does not exist: %s", searchPath)
		}
		if !info.IsDir() {
			return ErrorResult(ErrNotADirectory, "Path is not a directory: %s", searchPath)
		}
	}
	include := strArg(args, "include")

	matches, strategy := runGrepCascade(ctx, pattern, searchPath, include)

	location := fmt.Sprintf("in path %q", dirDisplay)
	filterDesc := ""
	if include != "" {
		filterDesc = fmt.Sprintf(" (filter: %q)", include)
	}
	if len(matches) == 0 {
		return DualResult(
			fmt.Sprintf("No matches found for pattern %q %s%s.", pattern, location, filterDesc),
			"No matches found")
	}

	truncated := len(matches) >= grepMaxMatches
	truncationNote := ""
	if truncated {
		truncationNote = fmt.Sprintf(" (results limited to %d matches for performance)", grepMaxMatches)
	}

	byFile := make(map[string][]grepMatch)
	var fileOrder []string
	for _, m := range matches {
		if _, seen := byFile[m.filePath]; !seen {
			fileOrder = append(fileOrder, m.filePath)
		}
		byFile[m.filePath] = append(byFile[m.filePath], m)
	}
	for _, fm := range byFile {
		sort.Slice(fm, func(i, j int) bool { return fm[i].lineNumber < fm[j].lineNumber })
	}

	matchTerm := "matches"
	if len(matches) == 1 {
		matchTerm = "match"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s for pattern %q %s%s:\n---\n",
		len(matches), matchTerm, pattern, location, filterDesc+truncationNote)
	for _, file := range fileOrder {
		fmt.Fprintf(&b, "File: %s\n", file)
		for _, m := range byFile[file] {
			fmt.Fprintf(&b, "L%d: %s\n", m.lineNumber, strings.TrimSpace(m.line))
		}
		b.WriteString("---\n")
	}

	display := fmt.Sprintf("Found %d %s", len(matches), matchTerm)
	if truncated {
		display += " (limited)"
	}
	res := DualResult(strings.TrimSpace(b.String()), display)
	res.Data = map[string]any{"strategy": strategy, "truncated": truncated}
	return res
}

// runGrepCascade tries git grep, then system grep, then the in-process
// walker. A strategy that errors (as opposed to finding nothing) falls
// through to the next one.
func runGrepCascade(ctx context.Context, pattern, searchPath, include string) ([]grepMatch, string) {
	if matches, ok := gitGrep(ctx, pattern, searchPath, include); ok {
		return matches, "git grep"
	}
	if matches, ok := systemGrep(ctx, pattern, searchPath, include); ok {
		return matches, "system grep"
	}
	return walkerGrep(ctx, pattern, searchPath, include), "native scan"
}

func gitGrep(ctx context.Context, pattern, searchPath, include string) ([]grepMatch, bool) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, false
	}
	if !insideGitWorkTree(ctx, searchPath) {
		return nil, false
	}

	args := []string{"grep", "--untracked", "-n", "-E", "--ignore-case", pattern}
	if include != "" {
		args = append(args, "--", include)
	}
	out, ok := runGrepBinary(ctx, searchPath, "git", args...)
	if !ok {
		return nil, false
	}
	return parseGrepOutput(out, searchPath), true
}

func systemGrep(ctx context.Context, pattern, searchPath, include string) ([]grepMatch, bool) {
	if _, err := exec.LookPath("grep"); err != nil {
		return nil, false
	}

	args := []string{"-r", "-n", "-H", "-E", "-I", "--ignore-case"}
	for _, exclude := range defaultExcludes {
		if !strings.HasPrefix(exclude, "*") {
			args = append(args, "--exclude-dir="+exclude)
		}
	}
	if include != "" {
		args = append(args, "--include="+include)
	}
	args = append(args, pattern, ".")
	out, ok := runGrepBinary(ctx, searchPath, "grep", args...)
	if !ok {
		return nil, false
	}
	return parseGrepOutput(out, searchPath), true
}

// runGrepBinary executes a grep-family command where exit code 1 means
// "no matches" rather than failure.
func runGrepBinary(ctx context.Context, dir, name string, args ...string) (string, bool) {
	runCtx, cancel := context.WithTimeout(ctx, grepSearchTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return string(out), true
		}
		return "", false
	}
	return string(out), true
}

func insideGitWorkTree(ctx context.Context, dir string) bool {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(checkCtx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	out, err := cmd.Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// parseGrepOutput converts "path:line:content" lines to matches, dropping
// any line whose resolved path escapes the search root.
func parseGrepOutput(output, basePath string) []grepMatch {
	var matches []grepMatch
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := grepLineRe.FindStringSubmatch(line)
		if parts == nil {
			continue
		}
		lineNum, err := strconv.Atoi(parts[2])
		if err != nil {
			continue
		}
		abs := filepath.Join(basePath, parts[1])
		if !isWithin(basePath, abs) {
			continue
		}
		rel, err := filepath.Rel(basePath, abs)
		if err != nil || rel == "" {
			rel = filepath.Base(abs)
		}
		matches = append(matches, grepMatch{filePath: rel, lineNumber: lineNum, line: parts[3]})
		if len(matches) >= grepMaxMatches {
			break
		}
	}
	return matches
}

// walkerGrep is the in-process fallback: a case-insensitive scan over the
// tree with the default exclusions, reading files as text and ignoring
// decode problems.
func walkerGrep(ctx context.Context, pattern, searchPath, include string) []grepMatch {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil
	}

	var matches []grepMatch
	filepath.WalkDir(searchPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if len(matches) >= grepMaxMatches || ctx.Err() != nil {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if path != searchPath && matchesName(d.Name(), defaultExcludes) {
				return filepath.SkipDir
			}
			return nil
		}
		if include != "" {
			if ok, _ := filepath.Match(include, d.Name()); !ok {
				return nil
			}
		}
		rel, relErr := filepath.Rel(searchPath, path)
		if relErr != nil || pathExcluded(rel, defaultExcludes) {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			if re.Match(scanner.Bytes()) {
				matches = append(matches, grepMatch{
					filePath:   rel,
					lineNumber: lineNum,
					line:       scanner.Text(),
				})
				if len(matches) >= grepMaxMatches {
					return filepath.SkipAll
				}
			}
		}
		return nil
	})
	return matches
}
