package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// CompareOptions tunes how two artifacts are diffed for the
// Orchestrator's compareTasks/compareLatestTwo operations (spec.md
// §4.4, §4.8). Normalization only affects which lines are considered
// equal; the emitted diff always carries the original, unnormalized
// text.
type CompareOptions struct {
	IgnoreWhitespace bool
	IgnoreCase       bool
}

// DefaultCompareOptions matches spec.md §4.4's default: whitespace
// differences are noise on most vendor configs, case differences
// usually aren't.
func DefaultCompareOptions() CompareOptions {
	return CompareOptions{IgnoreWhitespace: true, IgnoreCase: false}
}

// Compare loads two artifact paths and returns a full Report,
// including the unified diff text. Used by the Orchestrator's
// compareTasks/compareLatestTwo operations (spec.md §4.8).
func Compare(pathA, pathB string, opts CompareOptions) (Report, error) {
	a, err := Read(pathA)
	if err != nil {
		return Report{}, fmt.Errorf("artifact: read a: %w", err)
	}
	b, err := Read(pathB)
	if err != nil {
		return Report{}, fmt.Errorf("artifact: read b: %w", err)
	}
	return compareTextWithOptions(a, b, pathA, pathB, opts), nil
}

func compareTextWithOptions(a, b, nameA, nameB string, opts CompareOptions) Report {
	if len(a) > CompareMaxBytes || len(b) > CompareMaxBytes {
		return Report{Error: "too large"}
	}

	origA := difflib.SplitLines(a)
	origB := difflib.SplitLines(b)
	truncated := false
	if len(origA) > CompareMaxLines {
		origA = origA[:CompareMaxLines]
		truncated = true
	}
	if len(origB) > CompareMaxLines {
		origB = origB[:CompareMaxLines]
		truncated = true
	}

	if equalLines(origA, origB) {
		return Report{Identical: true, Truncated: truncated}
	}

	normA := normalizeLines(origA, opts)
	normB := normalizeLines(origB, opts)

	ud := difflib.UnifiedDiff{
		A:        normA,
		B:        normB,
		FromFile: nameA,
		ToFile:   nameB,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return Report{Error: "diff generation failed", Truncated: truncated}
	}
	if text != "" {
		// Re-render the body using the original (unnormalized) lines so
		// the diff a human reads reflects the real file content, not the
		// normalized matching text. Line counts line up 1:1 since
		// normalization never merges or splits lines.
		text = restoreOriginalLines(text, normA, normB, origA, origB)
	}

	text = truncateOutputLines(text, MaxOutputLines)
	added, removed := countHunkLines(text)
	modified := added
	if removed < modified {
		modified = removed
	}
	total := added + removed

	return Report{
		AddedLines:    added - modified,
		RemovedLines:  removed - modified,
		ModifiedLines: modified,
		TotalChanges:  total,
		UnifiedDiff:   text,
		Truncated:     truncated,
	}
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func normalizeLines(lines []string, opts CompareOptions) []string {
	if !opts.IgnoreWhitespace && !opts.IgnoreCase {
		return lines
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if opts.IgnoreWhitespace {
			nl := strings.HasSuffix(l, "\n")
			l = strings.Join(strings.Fields(l), " ")
			if nl {
				l += "\n"
			}
		}
		if opts.IgnoreCase {
			l = strings.ToLower(l)
		}
		out[i] = l
	}
	return out
}

// restoreOriginalLines walks the unified diff built from normalized
// lines and swaps each body line back to its original-text
// counterpart, found by position within the normalized slice it came
// from. Header lines (---, +++, @@) pass through unchanged.
func restoreOriginalLines(text string, normA, normB, origA, origB []string) string {
	aIdx := indexOf(normA)
	bIdx := indexOf(normB)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		switch line[0] {
		case '+':
			if strings.HasPrefix(line, "+++") {
				continue
			}
			if pos, ok := nextMatch(bIdx, normB, line[1:]); ok {
				lines[i] = "+" + strings.TrimSuffix(origB[pos], "\n")
			}
		case '-':
			if strings.HasPrefix(line, "---") {
				continue
			}
			if pos, ok := nextMatch(aIdx, normA, line[1:]); ok {
				lines[i] = "-" + strings.TrimSuffix(origA[pos], "\n")
			}
		case ' ':
			if pos, ok := nextMatch(aIdx, normA, line[1:]); ok {
				lines[i] = " " + strings.TrimSuffix(origA[pos], "\n")
			}
		}
	}
	return strings.Join(lines, "\n")
}

// indexOf builds a value->remaining-positions map so restoreOriginalLines
// can consume matching normalized lines in order without reusing the
// same source line twice for repeated content.
func indexOf(lines []string) map[string][]int {
	m := make(map[string][]int, len(lines))
	for i, l := range lines {
		k := strings.TrimSuffix(l, "\n")
		m[k] = append(m[k], i)
	}
	return m
}

func nextMatch(idx map[string][]int, lines []string, want string) (int, bool) {
	positions, ok := idx[want]
	if !ok || len(positions) == 0 {
		return 0, false
	}
	pos := positions[0]
	idx[want] = positions[1:]
	return pos, true
}

func truncateOutputLines(text string, max int) string {
	if text == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= max {
		return text
	}
	return strings.Join(lines[:max], "\n") + "\n... (diff truncated)\n"
}

// QuickCompare reports a line-count-delta summary without
// materializing a full diff, per compareLatestTwoQuick (spec.md §4.8,
// scenario 6): whenever the two artifacts' content hashes differ, it
// reports the line-count delta as a synthetic added/removed count and
// a short human message, skipping the cost of a real unified diff.
// Files that differ but have equal line counts report 0 added and 0
// removed.
func QuickCompare(pathA, pathB string) (Report, error) {
	ha, err := hashFile(pathA)
	if err != nil {
		return Report{}, fmt.Errorf("artifact: hash a: %w", err)
	}
	hb, err := hashFile(pathB)
	if err != nil {
		return Report{}, fmt.Errorf("artifact: hash b: %w", err)
	}
	if ha == hb {
		return Report{Identical: true}, nil
	}

	a, err := Read(pathA)
	if err != nil {
		return Report{}, fmt.Errorf("artifact: read a: %w", err)
	}
	b, err := Read(pathB)
	if err != nil {
		return Report{}, fmt.Errorf("artifact: read b: %w", err)
	}

	linesA := len(difflib.SplitLines(a))
	linesB := len(difflib.SplitLines(b))

	report := Report{
		UnifiedDiff:  fmt.Sprintf("配置文件行数变化: %d -> %d", linesA, linesB),
		TotalChanges: abs(linesB - linesA),
	}
	if linesB >= linesA {
		report.AddedLines = linesB - linesA
	} else {
		report.RemovedLines = linesA - linesB
	}
	return report, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func hashFile(path string) (string, error) {
	text, err := Read(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:]), nil
}

// Exists reports whether path exists on disk, used before attempting
// a compare against a device's prior artifact.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
