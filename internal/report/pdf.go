package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bagaart/TaskFlow/internal/models"
	"github.com/jung-kurt/gofpdf/v2"
)

const (
	RegularFontFile = "DejaVuSans.ttf"
	BoldFontFile    = "DejaVuSans-Bold.ttf"

	fontFamily = "DejaVu"

	pageMarginLeft   = 15.0
	pageMarginTop    = 20.0
	pageMarginRight  = 15.0
	pageMarginBottom = 20.0

	cellPadding   = 1.5
	lineHeight    = 4.5
	tableFontSize = 8.0
	maxColumnMM   = 70.0
)

// PDFRenderer lays out a dataset as an A4 portrait table with an optional
// chart page. Fonts are read from FontDir.
type PDFRenderer struct {
	FontDir string

	// onRow, when set, observes every table row fragment as it is drawn.
	onRow func(tableRow)
}

// tableRow describes one drawn row fragment. A row taller than a page is
// drawn as several fragments, one per page.
type tableRow struct {
	Page   int
	Header bool
	Shaded bool
	Lines  int
	Height float64
}

func NewPDFRenderer(fontDir string) *PDFRenderer {
	return &PDFRenderer{FontDir: fontDir}
}

func (r *PDFRenderer) Format() models.ReportFormat {
	return models.FormatPDF
}

func (r *PDFRenderer) fail(err error) error {
	return &RenderError{Format: models.FormatPDF, Err: err}
}

// CheckFonts verifies that both font files are readable.
func (r *PDFRenderer) CheckFonts() error {
	_, err := r.readFonts()
	return err
}

func (r *PDFRenderer) readFonts() (map[string][]byte, error) {
	fonts := make(map[string][]byte, 2)
	for style, name := range map[string]string{"": RegularFontFile, "B": BoldFontFile} {
		path := filepath.Join(r.FontDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, r.fail(fmt.Errorf("font %s not available: %w", path, err))
		}
		fonts[style] = data
	}
	return fonts, nil
}

// newDocument creates an A4 portrait document with the UTF-8 fonts embedded.
// Fonts are passed as bytes so FontDir may be absolute or relative.
func (r *PDFRenderer) newDocument() (*gofpdf.Fpdf, error) {
	fonts, err := r.readFonts()
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes(fontFamily, "", fonts[""])
	pdf.AddUTF8FontFromBytes(fontFamily, "B", fonts["B"])
	if pdf.Err() {
		return nil, r.fail(pdf.Error())
	}
	return pdf, nil
}

func (r *PDFRenderer) Render(ctx context.Context, ds *Dataset, opts RenderOptions, w io.Writer) error {
	pdf, err := r.newDocument()
	if err != nil {
		return err
	}

	pdf.SetMargins(pageMarginLeft, pageMarginTop, pageMarginRight)
	pdf.SetAutoPageBreak(false, pageMarginBottom)
	pdf.AliasNbPages("{nb}")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "", 8)
		pdf.SetTextColor(108, 117, 125)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	r.addTitle(pdf, ds, opts)

	if len(ds.Table.Rows) == 0 {
		pdf.SetFont(fontFamily, "", 10)
		pdf.SetTextColor(33, 37, 41)
		pdf.CellFormat(0, 8, "No records.", "", 1, "L", false, 0, "")
	} else {
		r.addTable(pdf, ds.Table)
	}

	var cleanups []func()
	defer func() {
		for _, c := range cleanups {
			c()
		}
	}()

	if opts.IncludeCharts {
		if err := ctx.Err(); err != nil {
			return r.fail(err)
		}
		c, err := r.addCharts(pdf, ds)
		cleanups = append(cleanups, c...)
		if err != nil {
			return r.fail(err)
		}
	}

	if pdf.Err() {
		return r.fail(pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return r.fail(err)
	}
	return nil
}

func (r *PDFRenderer) addTitle(pdf *gofpdf.Fpdf, ds *Dataset, opts RenderOptions) {
	pdf.SetFont(fontFamily, "B", 18)
	pdf.SetTextColor(33, 37, 41)
	pdf.CellFormat(0, 10, ds.Title, "", 1, "L", false, 0, "")

	pdf.SetFont(fontFamily, "", 9)
	pdf.SetTextColor(108, 117, 125)
	generated := opts.GeneratedAt
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s   Records: %d", FormatDate(generated), ds.Count), "", 1, "L", false, 0, "")

	pageWidth, _ := pdf.GetPageSize()
	pdf.SetLineWidth(0.4)
	pdf.SetDrawColor(0, 102, 204)
	pdf.Line(pageMarginLeft, pdf.GetY()+1, pageWidth-pageMarginRight, pdf.GetY()+1)
	pdf.Ln(5)
}

// columnWidths measures header and cell extents, caps each column and scales
// the set down proportionally when it exceeds the printable width.
func columnWidths(pdf *gofpdf.Fpdf, t Table, printable float64) []float64 {
	widths := make([]float64, len(t.Headers))

	pdf.SetFont(fontFamily, "B", tableFontSize)
	for i, h := range t.Headers {
		widths[i] = pdf.GetStringWidth(pdfText(h))
	}

	pdf.SetFont(fontFamily, "", tableFontSize)
	for _, row := range t.Rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			if w := pdf.GetStringWidth(pdfText(row[i])); w > widths[i] {
				widths[i] = w
			}
		}
	}

	total := 0.0
	for i := range widths {
		widths[i] = min(widths[i], maxColumnMM) + 2*cellPadding + 1
		total += widths[i]
	}

	if total > printable {
		scale := printable / total
		for i := range widths {
			widths[i] *= scale
		}
	}
	return widths
}

func (r *PDFRenderer) addTable(pdf *gofpdf.Fpdf, t Table) {
	pageWidth, pageHeight := pdf.GetPageSize()
	printable := pageWidth - pageMarginLeft - pageMarginRight
	bottom := pageHeight - pageMarginBottom
	widths := columnWidths(pdf, t, printable)

	header := wrapRow(pdf, t.Headers, widths, true)
	headerLines := lineCount(header)
	r.drawRow(pdf, header, 0, headerLines, widths, true, false)

	// lines of body text that fit on a page below a repeated header
	pageLines := max(linesFitting(bottom-pageMarginTop-rowSpan(headerLines)), 1)

	fresh := false
	newPage := func() {
		pdf.AddPage()
		r.drawRow(pdf, header, 0, headerLines, widths, true, false)
		fresh = true
	}

	for i, row := range t.Rows {
		cells := wrapRow(pdf, row, widths, false)
		total := lineCount(cells)

		for start := 0; start < total; {
			remaining := total - start
			fit := linesFitting(bottom - pdf.GetY())
			// Rows that fit on a fresh page are moved there whole; taller rows
			// start here and continue on the following pages.
			if !fresh && fit < remaining && (fit == 0 || remaining <= pageLines) {
				newPage()
				continue
			}

			n := max(min(fit, remaining), 1)
			r.drawRow(pdf, cells, start, n, widths, false, i%2 == 1)
			fresh = false
			start += n
			if start < total {
				newPage()
			}
		}
	}
}

func linesFitting(space float64) int {
	n := int((space - 2*cellPadding) / lineHeight)
	return max(n, 0)
}

func rowSpan(lines int) float64 {
	return float64(lines)*lineHeight + 2*cellPadding
}

func wrapCell(pdf *gofpdf.Fpdf, text string, width float64) []string {
	lines := pdf.SplitText(pdfText(text), width-2*cellPadding)
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

// wrapRow splits every cell into lines measured in the row's font.
func wrapRow(pdf *gofpdf.Fpdf, row []string, widths []float64, header bool) [][]string {
	if header {
		pdf.SetFont(fontFamily, "B", tableFontSize)
	} else {
		pdf.SetFont(fontFamily, "", tableFontSize)
	}

	cells := make([][]string, len(widths))
	for i, w := range widths {
		var text string
		if i < len(row) {
			text = row[i]
		}
		cells[i] = wrapCell(pdf, text, w)
	}
	return cells
}

func lineCount(cells [][]string) int {
	n := 1
	for _, c := range cells {
		n = max(n, len(c))
	}
	return n
}

// drawRow draws lines [start, start+n) of every cell as one row fragment.
func (r *PDFRenderer) drawRow(pdf *gofpdf.Fpdf, cells [][]string, start, n int, widths []float64, header, shaded bool) {
	if header {
		pdf.SetFont(fontFamily, "B", tableFontSize)
		pdf.SetFillColor(0, 102, 204)
		pdf.SetTextColor(255, 255, 255)
	} else {
		pdf.SetFont(fontFamily, "", tableFontSize)
		pdf.SetTextColor(33, 37, 41)
		if shaded {
			pdf.SetFillColor(241, 243, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
	}
	pdf.SetDrawColor(206, 212, 218)
	pdf.SetLineWidth(0.2)

	height := rowSpan(n)
	y := pdf.GetY()
	x := pageMarginLeft

	for i, w := range widths {
		pdf.Rect(x, y, w, height, "FD")
		lines := cells[i]
		for j := start; j < start+n && j < len(lines); j++ {
			pdf.SetXY(x+cellPadding, y+cellPadding+float64(j-start)*lineHeight)
			pdf.CellFormat(w-2*cellPadding, lineHeight, strings.TrimSpace(lines[j]), "", 0, "L", false, 0, "")
		}
		x += w
	}

	pdf.SetXY(pageMarginLeft, y+height)
	if r.onRow != nil {
		r.onRow(tableRow{Page: pdf.PageNo(), Header: header, Shaded: shaded, Lines: n, Height: height})
	}
}

func (r *PDFRenderer) addCharts(pdf *gofpdf.Fpdf, ds *Dataset) ([]func(), error) {
	var cleanups []func()

	pdf.AddPage()
	pdf.SetFont(fontFamily, "B", 14)
	pdf.SetTextColor(33, 37, 41)
	pdf.CellFormat(0, 10, "Charts", "", 1, "L", false, 0, "")

	pageWidth, _ := pdf.GetPageSize()
	printable := pageWidth - pageMarginLeft - pageMarginRight

	if ds.StatusChart.Empty() {
		r.addChartPlaceholder(pdf, ds.StatusChart.Title)
	} else {
		path, cleanup, err := renderPieChart(ds.StatusChart)
		cleanups = append(cleanups, cleanup)
		if err != nil {
			return cleanups, err
		}
		size := 100.0
		pdf.ImageOptions(path, pageMarginLeft+(printable-size)/2, pdf.GetY(), size, size, false,
			gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}, 0, "")
		pdf.SetY(pdf.GetY() + size + 5)
	}

	if ds.UserChart.Empty() {
		r.addChartPlaceholder(pdf, ds.UserChart.Title)
	} else {
		path, cleanup, err := renderBarChart(ds.UserChart)
		cleanups = append(cleanups, cleanup)
		if err != nil {
			return cleanups, err
		}
		height := printable * float64(chartHeight) / float64(chartWidth)
		pdf.ImageOptions(path, pageMarginLeft, pdf.GetY(), printable, height, false,
			gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}, 0, "")
		pdf.SetY(pdf.GetY() + height + 5)
	}

	if pdf.Err() {
		return cleanups, pdf.Error()
	}
	return cleanups, nil
}

func (r *PDFRenderer) addChartPlaceholder(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont(fontFamily, "", 10)
	pdf.SetTextColor(108, 117, 125)
	pdf.CellFormat(0, 8, fmt.Sprintf("%s: no data", title), "", 1, "L", false, 0, "")
}

// pdfText drops characters outside the Basic Multilingual Plane, which the
// UTF-8 font tables cannot index.
func pdfText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case r > 0xFFFF:
			return -1
		}
		return r
	}, s)
}
