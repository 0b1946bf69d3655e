// Package render writes case reports as PDF documents.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"firledger/internal/report/models"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// PDF renders report as an A4 document with the case details, linked persons
// and their statements, supplementary statements and the tracking timeline.
func PDF(report *models.CaseReport, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(true, 14)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(latin1(s)) }

	c := report.Case
	pdf.SetTitle("FIR Case Report "+c.FIRNo, false)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, fmt.Sprintf("%s  |  page %d", c.FIRNo, pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, text("FIR Case Report: "+c.FIRNo), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(0, 6, "Generated at: "+fmtTime(report.GeneratedAt), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	section(pdf, "1. Case Details")
	kv(pdf, text, "Case ID", c.ID.String())
	kv(pdf, text, "Station", c.StationID.String())
	if c.OfficerID != nil {
		kv(pdf, text, "Officer", c.OfficerID.String())
	}
	kv(pdf, text, "Crime Type", c.CrimeType)
	kv(pdf, text, "Section", c.CrimeSection)
	kv(pdf, text, "Status", string(c.Status))
	kv(pdf, text, "Priority", string(c.Priority))
	kv(pdf, text, "FIR Date", fmtTime(c.FIRDateTime))
	if c.IncidentDateTime != nil {
		kv(pdf, text, "Incident Date", fmtTime(*c.IncidentDateTime))
	}
	kv(pdf, text, "Location", strings.TrimSpace(c.IncidentLocation+" "+c.IncidentDistrict))
	kv(pdf, text, "Summary", c.Summary)
	pdf.Ln(2)

	section(pdf, "2. Persons")
	if len(report.Persons) == 0 {
		empty(pdf)
	}
	for _, p := range report.Persons {
		heading := fmt.Sprintf("%s: %s %s", p.Role, p.FirstName, p.LastName)
		if p.IsPrimary {
			heading += " (primary)"
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(20, 20, 20)
		pdf.MultiCell(0, 6, text(heading), "", "L", false)
		kv(pdf, text, "Added", fmtTime(p.AddedAt))
		if p.NationalID != nil {
			kv(pdf, text, "National ID", *p.NationalID)
		}
		if p.Statement != nil {
			pdf.SetFont("Helvetica", "", 9)
			pdf.SetTextColor(40, 40, 40)
			pdf.MultiCell(0, 4.5, text(*p.Statement), "L", "L", false)
		}
		pdf.Ln(1)
	}
	pdf.Ln(2)

	section(pdf, "3. Supplementary Statements")
	if len(report.Supplementary) == 0 {
		empty(pdf)
	}
	for _, st := range report.Supplementary {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(20, 20, 20)
		pdf.MultiCell(0, 5, text(fmt.Sprintf("%s | %s: %s %s", fmtTime(st.StatementDate), st.Role, st.FirstName, st.LastName)), "", "L", false)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(40, 40, 40)
		pdf.MultiCell(0, 4.5, text(st.Statement), "", "L", false)
		if st.Remarks != nil {
			pdf.MultiCell(0, 4.5, text("Remarks: "+*st.Remarks), "", "L", false)
		}
		pdf.Ln(1)
	}
	pdf.Ln(2)

	section(pdf, "4. Case Timeline")
	if len(report.Trail) == 0 {
		empty(pdf)
	}
	for _, ev := range report.Trail {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetTextColor(20, 20, 20)
		pdf.MultiCell(0, 4.5, text(fmtTime(ev.Timestamp)+" | "+ev.Label()), "", "L", false)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(40, 40, 40)
		pdf.MultiCell(0, 4.5, text(ev.Description), "", "L", false)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render case report: %w", err)
	}
	return pdf.Output(w)
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 7, title, "", 1, "L", false, 0, "")
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(pdf.GetX(), pdf.GetY(), 196, pdf.GetY())
	pdf.Ln(2)
}

func kv(pdf *gofpdf.Fpdf, text func(string) string, key, value string) {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(32, 5.2, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(20, 20, 20)
	pdf.MultiCell(0, 5.2, text(value), "", "L", false)
}

func empty(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	pdf.MultiCell(0, 5, "(none)", "", "L", false)
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}

// latin1 replaces runes the core fonts cannot draw.
func latin1(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case r == '\r':
			return -1
		case r > 0xFF:
			return '?'
		}
		return r
	}, s)
}
