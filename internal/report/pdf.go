// Package report renders datasets for download: a fixed-layout PDF report and
// a Parquet export of the records.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"chemviz/internal/ingest"
	"chemviz/internal/model"
)

const (
	Title = "Chemical Equipment Parameter Report"

	// MaxReportRecords is how many records the report lists.
	MaxReportRecords = 20

	timeLayout = "2006-01-02 15:04:05"
)

type rgb struct{ r, g, b int }

var (
	titleColor   = rgb{0x1a, 0x23, 0x7e}
	headingColor = rgb{0x28, 0x35, 0x93}
	headerFill   = rgb{0x3f, 0x51, 0xb5}
	labelFill    = rgb{0xe8, 0xea, 0xf6}
	beigeFill    = rgb{0xf5, 0xf5, 0xdc}
	stripeFill   = rgb{0xf5, 0xf5, 0xf5}
	white        = rgb{0xff, 0xff, 0xff}
)

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// Render writes the PDF report for ds to w. ds must have its records loaded.
func Render(w io.Writer, ds *model.Dataset, generatedAt time.Time) error {
	dist, err := ds.Distribution()
	if err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle(Title, true)
	pdf.SetCreator("chemviz", true)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	p := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFont("Helvetica", "B", 24)
	p.textColor(titleColor)
	pdf.CellFormat(0, 14, Title, "", 1, "C", false, 0, "")
	pdf.Ln(8)

	p.heading("Dataset Information")
	info := [][2]string{
		{"Filename:", ds.Filename},
		{"Upload Date:", ds.UploadedAt.Format(timeLayout)},
		{"Total Records:", fmt.Sprintf("%d", ds.TotalCount)},
	}
	if ds.UploadedBy != nil {
		info = append(info, [2]string{"Uploaded By:", ds.UploadedBy.Username})
	}
	pdf.SetDrawColor(128, 128, 128)
	for _, row := range info {
		pdf.SetFont("Helvetica", "B", 10)
		p.fillColor(labelFill)
		pdf.CellFormat(50, 9, p.tr(row[0]), "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(100, 9, p.tr(row[1]), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	p.heading("Summary Statistics")
	pdf.SetDrawColor(0, 0, 0)
	widths := []float64{50, 50, 38}
	p.headerRow(widths, 12, "Parameter", "Average Value", "Unit")
	pdf.SetFont("Helvetica", "", 10)
	summary := [][3]string{
		{"Flowrate", fmt.Sprintf("%.2f", ds.AvgFlowrate), "m³/h"},
		{"Pressure", fmt.Sprintf("%.2f", ds.AvgPressure), "bar"},
		{"Temperature", fmt.Sprintf("%.2f", ds.AvgTemperature), "°C"},
	}
	for _, row := range summary {
		p.row(widths, beigeFill, row[:]...)
	}
	pdf.Ln(8)

	p.heading("Equipment Type Distribution")
	widths = []float64{64, 38, 38}
	p.headerRow(widths, 12, "Equipment Type", "Count", "Percentage")
	pdf.SetFont("Helvetica", "", 10)
	for i, c := range ingest.SortedDistribution(dist) {
		pct := 0.0
		if ds.TotalCount > 0 {
			pct = float64(c.Count) / float64(ds.TotalCount) * 100
		}
		fill := labelFill
		if i%2 == 1 {
			fill = white
		}
		p.row(widths, fill, c.Category, fmt.Sprintf("%d", c.Count), fmt.Sprintf("%.1f%%", pct))
	}
	pdf.Ln(8)

	p.heading("Equipment Records")
	pdf.SetDrawColor(128, 128, 128)
	widths = []float64{50, 38, 25, 25, 25}
	p.headerRow(widths, 10, "Equipment Name", "Type", "Flow", "Press.", "Temp.")
	pdf.SetFont("Helvetica", "", 8)
	records := ds.Records
	if len(records) > MaxReportRecords {
		records = records[:MaxReportRecords]
	}
	for i, r := range records {
		fill := white
		if i%2 == 1 {
			fill = stripeFill
		}
		p.row(widths, fill,
			truncate(r.EquipmentName, 20),
			truncate(r.EquipmentType, 15),
			fmt.Sprintf("%.1f", r.Flowrate),
			fmt.Sprintf("%.1f", r.Pressure),
			fmt.Sprintf("%.1f", r.Temperature),
		)
	}

	if ds.TotalCount > MaxReportRecords {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 6, fmt.Sprintf("Note: Showing first %d of %d records", MaxReportRecords, ds.TotalCount), "", 1, "L", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 5, "Generated on "+generatedAt.Format(timeLayout), "", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

func (p *pdfWriter) heading(text string) {
	p.pdf.SetFont("Helvetica", "B", 16)
	p.textColor(headingColor)
	p.pdf.CellFormat(0, 10, text, "", 1, "L", false, 0, "")
	p.pdf.Ln(2)
}

func (p *pdfWriter) headerRow(widths []float64, size float64, cols ...string) {
	p.pdf.SetFont("Helvetica", "B", size)
	p.fillColor(headerFill)
	p.textColor(white)
	for i, col := range cols {
		p.pdf.CellFormat(widths[i], 9, col, "1", 0, "C", true, 0, "")
	}
	p.pdf.Ln(-1)
	p.pdf.SetTextColor(0, 0, 0)
}

func (p *pdfWriter) row(widths []float64, fill rgb, cols ...string) {
	p.fillColor(fill)
	for i, col := range cols {
		p.pdf.CellFormat(widths[i], 7, p.tr(col), "1", 0, "C", true, 0, "")
	}
	p.pdf.Ln(-1)
}

func (p *pdfWriter) textColor(c rgb) {
	p.pdf.SetTextColor(c.r, c.g, c.b)
}

func (p *pdfWriter) fillColor(c rgb) {
	p.pdf.SetFillColor(c.r, c.g, c.b)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
