// Package diffutil summarizes line changes between two texts, used to tell
// the user what a configuration reload changed.
package diffutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Change is one inserted or deleted line.
type Change struct {
	Type diffmatchpatch.Operation // DiffInsert or DiffDelete
	Line string
}

func (c Change) String() string {
	switch c.Type {
	case diffmatchpatch.DiffInsert:
		return "+ " + c.Line
	case diffmatchpatch.DiffDelete:
		return "- " + c.Line
	}
	return "  " + c.Line
}

// LineChanges returns the lines removed from original and added in
// modified, in document order. Unchanged lines are dropped.
func LineChanges(original, modified string) []Change {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 5 * time.Second

	a, b, lineArray := dmp.DiffLinesToChars(original, modified)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var changes []Change
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			continue
		}
		for _, line := range splitLines(d.Text) {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			changes = append(changes, Change{Type: d.Type, Line: trimmed})
		}
	}
	return changes
}

// Summary renders at most limit changes, one per line, followed by a count
// of the rest. limit <= 0 renders everything.
func Summary(changes []Change, limit int) string {
	if len(changes) == 0 {
		return "No changes."
	}
	var buf strings.Builder
	inserted, deleted := 0, 0
	for i, c := range changes {
		switch c.Type {
		case diffmatchpatch.DiffInsert:
			inserted++
		case diffmatchpatch.DiffDelete:
			deleted++
		}
		if limit <= 0 || i < limit {
			buf.WriteString(c.String())
			buf.WriteByte('\n')
		}
	}
	if limit > 0 && len(changes) > limit {
		fmt.Fprintf(&buf, "... and %d more\n", len(changes)-limit)
	}
	fmt.Fprintf(&buf, "(%d added, %d removed)", inserted, deleted)
	return buf.String()
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
