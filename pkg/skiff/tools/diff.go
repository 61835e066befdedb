package tools

import (
	"fmt"
	"strings"
)

// diffMaxLines bounds the quadratic LCS table. Beyond it the display
// degrades to a summary; the edit itself is unaffected.
const diffMaxLines = 3000

// unifiedDiff renders a unified diff (3 context lines) between two texts
// for display purposes.
func unifiedDiff(oldText, newText, oldLabel, newLabel string) string {
	if oldText == newText {
		return ""
	}
	oldLines := splitLines(oldText)
	newLines := splitLines(newText)
	if len(oldLines) > diffMaxLines || len(newLines) > diffMaxLines {
		return fmt.Sprintf("--- %s\n+++ %s\n(diff too large to display: %d -> %d lines)",
			oldLabel, newLabel, len(oldLines), len(newLines))
	}

	ops := diffOpcodes(oldLines, newLines)
	hunks := groupHunks(ops, 3)
	if len(hunks) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", oldLabel, newLabel)
	for _, hunk := range hunks {
		first, last := hunk[0], hunk[len(hunk)-1]
		oldStart, oldLen := first.i1+1, last.i2-first.i1
		newStart, newLen := first.j1+1, last.j2-first.j1
		if oldLen == 0 {
			oldStart = first.i1
		}
		if newLen == 0 {
			newStart = first.j1
		}
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldLen, newStart, newLen)
		for _, op := range hunk {
			switch op.kind {
			case opEqual:
				for _, line := range oldLines[op.i1:op.i2] {
					b.WriteString(" " + line + "\n")
				}
			case opDelete, opReplace:
				for _, line := range oldLines[op.i1:op.i2] {
					b.WriteString("-" + line + "\n")
				}
			}
			if op.kind == opInsert || op.kind == opReplace {
				for _, line := range newLines[op.j1:op.j2] {
					b.WriteString("+" + line + "\n")
				}
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

type opKind int

const (
	opEqual opKind = iota
	opDelete
	opInsert
	opReplace
)

// opcode spans old[i1:i2] and new[j1:j2], difflib-style.
type opcode struct {
	kind   opKind
	i1, i2 int
	j1, j2 int
}

// diffOpcodes computes an edit script over lines using an LCS table.
func diffOpcodes(a, b []string) []opcode {
	n, m := len(a), len(b)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var ops []opcode
	i, j := 0, 0
	flush := func(i1, i2, j1, j2 int) {
		if i2 > i1 && j2 > j1 {
			ops = append(ops, opcode{opReplace, i1, i2, j1, j2})
		} else if i2 > i1 {
			ops = append(ops, opcode{opDelete, i1, i2, j1, j1})
		} else if j2 > j1 {
			ops = append(ops, opcode{opInsert, i1, i1, j1, j2})
		}
	}
	for i < n && j < m {
		if a[i] == b[j] {
			startI, startJ := i, j
			for i < n && j < m && a[i] == b[j] {
				i++
				j++
			}
			ops = append(ops, opcode{opEqual, startI, i, startJ, j})
			continue
		}
		di, dj := i, j
		for i < n && j < m && a[i] != b[j] {
			if lcs[i+1][j] >= lcs[i][j+1] {
				i++
			} else {
				j++
			}
		}
		flush(di, i, dj, j)
	}
	flush(i, n, j, m)
	return ops
}

// groupHunks trims equal runs to the context width and splits the opcodes
// into display hunks.
func groupHunks(ops []opcode, context int) [][]opcode {
	var hunks [][]opcode
	var current []opcode
	for idx, op := range ops {
		if op.kind != opEqual {
			current = append(current, op)
			continue
		}
		size := op.i2 - op.i1
		switch {
		case idx == 0:
			// Leading context only.
			if size > context {
				op.i1, op.j1 = op.i2-context, op.j2-context
			}
			if op.i1 < op.i2 {
				current = append(current, op)
			}
		case idx == len(ops)-1:
			// Trailing context only.
			if size > context {
				op.i2, op.j2 = op.i1+context, op.j1+context
			}
			if op.i1 < op.i2 {
				current = append(current, op)
			}
		case size > 2*context:
			// Split: close the current hunk, open a new one.
			tail := op
			tail.i2, tail.j2 = tail.i1+context, tail.j1+context
			current = append(current, tail)
			if hasChange(current) {
				hunks = append(hunks, current)
			}
			head := op
			head.i1, head.j1 = head.i2-context, head.j2-context
			current = []opcode{head}
		default:
			current = append(current, op)
		}
	}
	if hasChange(current) {
		hunks = append(hunks, current)
	}
	return hunks
}

func hasChange(ops []opcode) bool {
	for _, op := range ops {
		if op.kind != opEqual {
			return true
		}
	}
	return false
}
