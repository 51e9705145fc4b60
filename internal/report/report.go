// Package report prints the navigation path of a session as a PDF.
package report

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"tree_nav/internal/navigator"
)

type Meta struct {
	Title     string
	SessionID string
	FileName  string
}

func Write(w io.Writer, meta Meta, s navigator.State) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(meta.Title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(meta.Title))
	pdf.Ln(12)

	pdf.SetFont("Courier", "", 10)
	if meta.FileName != "" {
		pdf.Cell(0, 6, tr("file:    "+meta.FileName))
		pdf.Ln(6)
	}
	if meta.SessionID != "" {
		pdf.Cell(0, 6, "session: "+meta.SessionID)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Path")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	path := s.Path()
	if len(path) == 0 {
		pdf.Cell(0, 6, "(no answers yet)")
		pdf.Ln(6)
	}
	for i, step := range path {
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s: %s", i+1, step.Question, step.Answer)), "", "L", false)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.MultiCell(0, 8, tr(outcomeLine(s)), "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func outcomeLine(s navigator.State) string {
	switch s.Status() {
	case navigator.AtNode:
		return "Next question: " + s.Current().Question
	case navigator.AtResult:
		if result, ok := s.Outcome(); ok {
			return "Result: " + result
		}
		return "Result: none (the tree has nothing to navigate)"
	default:
		return "No tree loaded"
	}
}
