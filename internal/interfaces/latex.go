package interfaces

import "context"

// LaTeXCompiler runs the LaTeX toolchain over a .tex source.
type LaTeXCompiler interface {
	// Compile builds texPath in its own directory using cmd (e.g.
	// "pdflatex"). Returns toolchain stderr/stdout context on failure.
	Compile(ctx context.Context, texPath, cmd string) error
}

// PDFInspector reports advisory metadata about a produced PDF.
type PDFInspector interface {
	// PageCount returns the page count, or an error when the file is not
	// a readable PDF.
	PageCount(path string) (int, error)
}
