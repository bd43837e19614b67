package mail

import (
	"strings"
	"testing"
	"time"

	"notas/internal/core"
)

func TestNoteDraft(t *testing.T) {
	note := core.ServiceNote{
		Date:                 core.Date{Year: 2024, Month: time.March, Day: 15},
		Start:                core.Clock{Minutes: 9 * 60},
		End:                  core.Clock{Minutes: 18 * 60},
		ClientRepresentative: "Jane Doe",
		Description:          "Security hardening.",
	}

	d := NoteDraft(note, "Acme Corp", "Migration", "Ana Torres")

	if d.Subject != "Service Note: Project Migration - 2024-03-15" {
		t.Errorf("Subject = %q", d.Subject)
	}
	for _, want := range []string{"Acme Corp", "Ana Torres", "9.00", "Security hardening."} {
		if !strings.Contains(d.Body, want) {
			t.Errorf("Body missing %q:\n%s", want, d.Body)
		}
	}
}

func TestSummaryDraft(t *testing.T) {
	report := core.Report{
		Period:     "Marzo 2024",
		Rows:       []core.Row{{Date: core.Date{Year: 2024, Month: time.March, Day: 5}, ClientName: "Acme", ProjectName: "Migration", ConsultantName: "Ana", Hours: 8}},
		TotalHours: 8,
	}

	d := SummaryDraft(report)

	if d.Subject != "Monthly Service Summary - Marzo 2024" {
		t.Errorf("Subject = %q", d.Subject)
	}
	if !strings.Contains(d.Body, "Total hours: 8.00") {
		t.Errorf("Body missing total:\n%s", d.Body)
	}
}

func TestMailtoLink(t *testing.T) {
	d := Draft{Subject: "Two words", Body: "line one\nline two"}

	got := MailtoLink("client@example.com", d)
	want := "mailto:client@example.com?subject=Two%20words&body=line%20one%0Aline%20two"
	if got != want {
		t.Errorf("MailtoLink = %q, want %q", got, want)
	}
}

func TestMailtoLinkTrimsBody(t *testing.T) {
	d := Draft{Subject: "S", Body: "body\n"}
	got := MailtoLink("", d)
	if strings.HasSuffix(got, "%0A") {
		t.Errorf("trailing newline not trimmed: %q", got)
	}
}
