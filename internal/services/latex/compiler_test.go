package latex

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestVerifyPDF(t *testing.T) {
	dir := t.TempDir()

	ok, reason := VerifyPDF(filepath.Join(dir, "absent.pdf"))
	assert.False(t, ok)
	assert.Contains(t, reason, "not found")

	empty := filepath.Join(dir, "empty.pdf")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	ok, reason = VerifyPDF(empty)
	assert.False(t, ok)
	assert.Contains(t, reason, "empty")

	real := filepath.Join(dir, "real.pdf")
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(40, 10, "Resume")
	require.NoError(t, pdf.OutputFileAndClose(real))

	ok, reason = VerifyPDF(real)
	assert.True(t, ok)
	assert.Equal(t, "", reason)
}

func TestInspector_PageCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "two-pages.pdf")
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()
	pdf.Cell(40, 10, "One")
	pdf.AddPage()
	pdf.Cell(40, 10, "Two")
	require.NoError(t, pdf.OutputFileAndClose(path))

	pages, err := Inspector{}.PageCount(path)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
}

func TestCompiler_MissingToolchainReportsCommand(t *testing.T) {
	dir := t.TempDir()
	texPath := filepath.Join(dir, "resume.tex")
	require.NoError(t, os.WriteFile(texPath, []byte("\\documentclass{article}"), 0644))

	c := NewCompiler(arbor.NewLogger())
	err := c.Compile(context.Background(), texPath, "definitely-not-a-latex-binary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definitely-not-a-latex-binary")
}

func TestTailOf(t *testing.T) {
	assert.Equal(t, "short", tailOf("short", 400))

	long := tailOf(strings.Repeat("x", 500), 10)
	assert.Len(t, long, 13)
	assert.True(t, strings.HasPrefix(long, "..."))
}
