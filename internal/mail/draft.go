// Package mail builds outbound email drafts for notes and monthly
// summaries. The tool never sends mail itself; it hands the operator a
// mailto link for their own client.
package mail

import (
	"fmt"
	"strings"

	"notas/internal/core"
)

// Draft is a prepared message. Body is plain text with newlines.
type Draft struct {
	Subject string
	Body    string
}

// NoteDraft drafts the email for a single service note.
func NoteDraft(note core.ServiceNote, clientName, projectName, consultantName string) Draft {
	var b strings.Builder
	fmt.Fprintf(&b, "Service note for %s\n\n", clientName)
	fmt.Fprintf(&b, "Date: %s\n", note.Date)
	fmt.Fprintf(&b, "Project: %s\n", projectName)
	fmt.Fprintf(&b, "Consultant: %s\n", consultantName)
	fmt.Fprintf(&b, "Hours: %.2f (%s - %s)\n", note.Hours(), note.Start, note.End)
	fmt.Fprintf(&b, "Representative: %s\n\n", note.ClientRepresentative)
	fmt.Fprintf(&b, "Description:\n%s\n", note.Description)

	return Draft{
		Subject: fmt.Sprintf("Service Note: Project %s - %s", projectName, note.Date),
		Body:    b.String(),
	}
}

// SummaryDraft drafts the email for a monthly report.
func SummaryDraft(report core.Report) Draft {
	var b strings.Builder
	fmt.Fprintf(&b, "Monthly service summary for %s\n\n", report.Period)
	for _, row := range report.Rows {
		fmt.Fprintf(&b, "- %s | %s | %s | %s | %.2f h\n",
			row.Date, row.ClientName, row.ProjectName, row.ConsultantName, row.Hours)
	}
	fmt.Fprintf(&b, "\nTotal hours: %.2f\n", report.TotalHours)

	return Draft{
		Subject: fmt.Sprintf("Monthly Service Summary - %s", report.Period),
		Body:    b.String(),
	}
}

// MailtoLink encodes a draft as a mailto URL. Only newlines and spaces are
// escaped, matching what desktop mail clients expect from these links.
func MailtoLink(to string, d Draft) string {
	escape := func(s string) string {
		s = strings.TrimSpace(s)
		s = strings.ReplaceAll(s, "\n", "%0A")
		return strings.ReplaceAll(s, " ", "%20")
	}
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s", to, escape(d.Subject), escape(d.Body))
}
