// Package export renders service notes and monthly reports as A4 PDFs.
package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"notas/internal/core"
)

// NoteDocument is a fully resolved note ready for rendering: the caller has
// already turned reference IDs into display names.
type NoteDocument struct {
	Note           core.ServiceNote
	ClientName     string
	ProjectName    string
	ConsultantName string
	CompanyName    string
}

func formatLabel(f core.Format) string {
	switch f {
	case core.OnSite:
		return "Presencial"
	case core.Remote:
		return "Streaming"
	default:
		return string(f)
	}
}

func newPDF() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	return pdf
}

// WriteNotePDF renders a single service note.
func WriteNotePDF(w io.Writer, doc NoteDocument) error {
	pdf := newPDF()
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Nota de Servicio", "", 1, "C", false, 0, "")
	if doc.CompanyName != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, doc.CompanyName, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	field := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 7, value, "", "L", false)
	}

	field("Cliente", doc.ClientName)
	field("Proyecto", doc.ProjectName)
	field("Consultor", doc.ConsultantName)
	field("Fecha", doc.Note.Date.String())
	field("Horario", fmt.Sprintf("%s - %s (%.2f h)",
		doc.Note.Start, doc.Note.End, doc.Note.Hours()))
	field("Formato", formatLabel(doc.Note.Format))
	field("Representante", doc.Note.ClientRepresentative)

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 7, "Descripción del servicio", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, doc.Note.Description, "", "L", false)

	pdf.Ln(8)
	drawSignature(pdf, "Firma del consultor", doc.ConsultantName, "sig-consultant", doc.Note.ConsultantSignature)
	drawSignature(pdf, "Firma del cliente", doc.Note.ClientRepresentative, "sig-client", doc.Note.ClientSignature)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render note pdf: %w", err)
	}
	return nil
}

func drawSignature(pdf *fpdf.Fpdf, label, name, imageName string, png []byte) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 7, label, "", 1, "L", false, 0, "")
	if len(png) > 0 {
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(png))
		x, y := pdf.GetXY()
		pdf.ImageOptions(imageName, x, y, 60, 20, false, opts, 0, "")
		pdf.SetXY(x, y+22)
	}
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, name, "", 1, "L", false, 0, "")
	pdf.Ln(3)
}

// WriteReportPDF renders a monthly summary table with the period total.
func WriteReportPDF(w io.Writer, report core.Report, companyName string) error {
	pdf := newPDF()
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Resumen Mensual - %s", report.Period), "", 1, "C", false, 0, "")
	if companyName != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, companyName, "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	headers := []string{"Fecha", "Cliente", "Proyecto", "Consultor", "Horas"}
	widths := []float64{26, 42, 42, 42, 22}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range report.Rows {
		pdf.CellFormat(widths[0], 7, row.Date.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, row.ClientName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, row.ProjectName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 7, row.ConsultantName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[4], 7, fmt.Sprintf("%.2f", row.Hours), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(widths[0]+widths[1]+widths[2]+widths[3], 8, "Total de horas", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[4], 8, fmt.Sprintf("%.2f", report.TotalHours), "1", 1, "R", false, 0, "")

	if len(report.Rows) == 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 7, "Sin notas de servicio en este periodo.", "", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render report pdf: %w", err)
	}
	return nil
}
