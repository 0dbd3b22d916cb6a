package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// diffMaxBytes/diffMaxLines bound the fire-and-forget Diff operation
// (spec.md §4.4's diff(), against the prior artifact) generously —
// the spec states no explicit guard for this path, only for compare().
const diffMaxBytes = 8 << 20 // 8 MiB
const diffMaxLines = 50000

// CompareMaxBytes is compare()'s hard size guard (spec.md §4.4): a
// file exceeding this returns error:"too large" with no diff body.
const CompareMaxBytes = 1 << 20 // 1 MiB

// CompareMaxLines is compare()'s line guard (spec.md §4.4): inputs are
// truncated to this many lines before comparison, not rejected.
const CompareMaxLines = 10000

// MaxOutputLines bounds how much unified diff text compare() ever
// returns; a config rewritten wholesale can otherwise produce a diff
// larger than the artifacts themselves (spec.md §4.4).
const MaxOutputLines = 5000

// Report is the result of comparing two artifacts.
type Report struct {
	Identical     bool
	Truncated     bool // true when either input exceeded the line guard; a file over Compare's size guard sets Error instead
	Error         string
	AddedLines    int
	RemovedLines  int
	ModifiedLines int
	TotalChanges  int
	UnifiedDiff   string
}

// HasChanges reports spec.md §4.4's has_changes: true whenever the
// comparison found any line-level difference.
func (r Report) HasChanges() bool {
	return r.TotalChanges > 0
}

// Diff computes a unified diff between the previous and current
// artifact contents and persists it alongside current's path, using
// "previous_<name>"/"current_<name>" labels per spec.md §4.4.
func Diff(previousPath, currentPath string) (Report, error) {
	prev, err := Read(previousPath)
	if err != nil {
		return Report{}, fmt.Errorf("artifact: read previous: %w", err)
	}
	cur, err := Read(currentPath)
	if err != nil {
		return Report{}, fmt.Errorf("artifact: read current: %w", err)
	}

	report := compareText(prev, cur, filepath.Base(previousPath), filepath.Base(currentPath))

	if report.UnifiedDiff != "" {
		diffPath := DiffPath(currentPath)
		if err := os.WriteFile(diffPath, []byte(report.UnifiedDiff), 0o644); err != nil {
			return report, fmt.Errorf("artifact: write diff: %w", err)
		}
	}

	return report, nil
}

// compareText runs the size/line guard, then either a full unified
// diff or a truncated identical/changed verdict.
func compareText(prev, cur, prevName, curName string) Report {
	if prev == cur {
		return Report{Identical: true}
	}

	if len(prev) > diffMaxBytes || len(cur) > diffMaxBytes {
		return Report{Identical: false, Truncated: true}
	}

	prevLines := difflib.SplitLines(prev)
	curLines := difflib.SplitLines(cur)
	if len(prevLines) > diffMaxLines || len(curLines) > diffMaxLines {
		return Report{Identical: false, Truncated: true}
	}

	ud := difflib.UnifiedDiff{
		A:        prevLines,
		B:        curLines,
		FromFile: "previous_" + prevName,
		ToFile:   "current_" + curName,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return Report{Identical: false, Truncated: true}
	}

	added, removed := countHunkLines(text)
	return Report{
		Identical:    false,
		AddedLines:   added,
		RemovedLines: removed,
		UnifiedDiff:  text,
	}
}

// countHunkLines counts +/- lines in a unified diff body, skipping the
// --- / +++ file headers.
func countHunkLines(udiff string) (added, removed int) {
	for _, line := range strings.Split(udiff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}
