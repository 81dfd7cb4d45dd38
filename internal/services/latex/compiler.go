package latex

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"

	"github.com/dengnaichen/jobworkflow/internal/interfaces"
)

// Compiler runs pdflatex as a subprocess in the directory of the .tex
// source so auxiliary files land next to the output.
type Compiler struct {
	logger arbor.ILogger
}

var _ interfaces.LaTeXCompiler = (*Compiler)(nil)

// NewCompiler creates a subprocess-backed LaTeX compiler.
func NewCompiler(logger arbor.ILogger) *Compiler {
	return &Compiler{logger: logger}
}

// Compile runs cmd over texPath with -interaction=nonstopmode. Failure
// surfaces the tail of the toolchain output for diagnosis.
func (c *Compiler) Compile(ctx context.Context, texPath, cmd string) error {
	if cmd == "" {
		cmd = "pdflatex"
	}

	dir := filepath.Dir(texPath)
	name := filepath.Base(texPath)

	run := exec.CommandContext(ctx, cmd, "-interaction=nonstopmode", "-halt-on-error", name)
	run.Dir = dir

	var output bytes.Buffer
	run.Stdout = &output
	run.Stderr = &output

	c.logger.Debug().Str("cmd", cmd).Str("tex", name).Msg("Running LaTeX compile")

	if err := run.Run(); err != nil {
		return fmt.Errorf("%s failed: %s", cmd, tailOf(output.String(), 400))
	}
	return nil
}

// tailOf keeps the last n characters of toolchain output, which is where
// pdflatex reports the actual error.
func tailOf(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// VerifyPDF checks that path exists and has non-zero size. Returns a
// descriptive reason on failure.
func VerifyPDF(path string) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Sprintf("compiled PDF not found: %s", filepath.Base(path))
	}
	if info.Size() == 0 {
		return false, fmt.Sprintf("compiled PDF is empty: %s", filepath.Base(path))
	}
	return true, ""
}

// Inspector reports advisory PDF metadata via pdfcpu.
type Inspector struct{}

var _ interfaces.PDFInspector = (*Inspector)(nil)

// PageCount returns the page count of the PDF at path.
func (Inspector) PageCount(path string) (int, error) {
	return api.PageCountFile(path)
}
