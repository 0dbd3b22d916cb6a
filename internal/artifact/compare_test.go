package artifact

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	store := NewStore(dir, false)
	res, err := store.Save(path, []byte(content))
	require.NoError(t, err)
	return res.Path
}

func TestCompareIdentical(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "interface Gi0/1\n shutdown\n")
	b := writeFile(t, dir, "b.txt", "interface Gi0/1\n shutdown\n")

	report, err := Compare(a, b, DefaultCompareOptions())
	require.NoError(t, err)
	assert.True(t, report.Identical)
}

func TestCompareIgnoresWhitespaceByDefault(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "interface Gi0/1\n  shutdown\n")
	b := writeFile(t, dir, "b.txt", "interface Gi0/1\nshutdown\n")

	report, err := Compare(a, b, DefaultCompareOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, report.AddedLines)
	assert.Equal(t, 0, report.RemovedLines)
}

func TestCompareDetectsRealChange(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "line one\nline two\nline three\n")
	b := writeFile(t, dir, "b.txt", "line one\nline TWO\nline three\n")

	report, err := Compare(a, b, CompareOptions{})
	require.NoError(t, err)
	assert.False(t, report.Identical)
	assert.NotEmpty(t, report.UnifiedDiff)
	assert.Equal(t, 1, report.ModifiedLines)
}

func TestQuickCompareLineCountMessage(t *testing.T) {
	dir := t.TempDir()
	linesA := ""
	for i := 0; i < 100; i++ {
		linesA += "line\n"
	}
	linesB := ""
	for i := 0; i < 120; i++ {
		linesB += "line\n"
	}
	a := writeFile(t, dir, "a.txt", linesA)
	b := writeFile(t, dir, "b.txt", linesB)

	report, err := QuickCompare(a, b)
	require.NoError(t, err)
	assert.False(t, report.Identical)
	assert.Equal(t, 20, report.AddedLines)
	assert.Equal(t, 0, report.RemovedLines)
	assert.Contains(t, report.UnifiedDiff, "100 -> 120")
}

func TestQuickCompareIdentical(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "same\n")
	b := writeFile(t, dir, "b.txt", "same\n")

	report, err := QuickCompare(a, b)
	require.NoError(t, err)
	assert.True(t, report.Identical)
}
