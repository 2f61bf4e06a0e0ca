// Package pdfgen assembles the PDF summary bundled with a report:
// a title page with the report text, then one image per page.
package pdfgen

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	_ "image/jpeg"
	_ "image/png"
)

// Page geometry, A4 portrait in millimeters.
const (
	pageWidth  = 210
	pageHeight = 297
	margin     = 20

	// Bounding box for embedded images.
	maxImageWidth  = 160
	maxImageHeight = 220
)

// Assemble writes the summary PDF to path. Broken or unsupported images do
// not fail the document; they are replaced with a note so the report still
// goes out.
func Assemble(path, title, text string, images []string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()

	if strings.TrimSpace(title) == "" {
		title = "Report"
	}
	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 8, tr(title), "", "C", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, tr("Generated: "+time.Now().UTC().Format(time.RFC3339)+" UTC"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	if strings.TrimSpace(text) != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5, tr(text), "", "L", false)
	}

	for _, img := range images {
		pdf.AddPage()
		if err := placeImage(pdf, img); err != nil {
			pdf.SetFont("Helvetica", "I", 11)
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("Could not embed %s: %v", filepath.Base(img), err)), "", "L", false)
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("pdf output: %w", err)
	}
	return nil
}

// placeImage centers one image on the current page, scaled to fit the
// bounding box while preserving aspect ratio.
func placeImage(pdf *fpdf.Fpdf, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	cfg, format, err := image.DecodeConfig(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if format != "png" && format != "jpeg" {
		return fmt.Errorf("unsupported format %q", format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("empty image")
	}

	// mm per pixel so the image fills the box in at least one dimension.
	ratio := maxImageWidth / float64(cfg.Width)
	if r := maxImageHeight / float64(cfg.Height); r < ratio {
		ratio = r
	}
	w := float64(cfg.Width) * ratio
	h := float64(cfg.Height) * ratio
	x := (pageWidth - w) / 2
	y := (pageHeight - h) / 2

	opt := fpdf.ImageOptions{ReadDpi: false}
	pdf.ImageOptions(path, x, y, w, h, false, opt, 0, "")
	if pdf.Err() {
		err := pdf.Error()
		// Clear the error so one bad image does not poison the document.
		pdf.ClearError()
		return err
	}
	return nil
}
