package core

import (
	"fmt"
	"sort"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Placeholder strings used when a note references a record that no longer
// exists. Display degrades instead of failing.
const (
	PlaceholderNotFound   = "not found"
	PlaceholderUnassigned = "unassigned"
)

// spanishMonths follows the original es-ES labels of the printed documents.
var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var titleCaser = cases.Title(language.Spanish)

// MonthName returns the localized (Spanish) name of a month.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return spanishMonths[m-1]
}

// PeriodLabel returns the human-readable report period, e.g. "Marzo 2024".
func PeriodLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", titleCaser.String(MonthName(month)), year)
}

// Row is one enriched line of the monthly report.
type Row struct {
	NoteID         string
	ClientName     string
	ProjectName    string
	ConsultantName string
	Date           Date
	Hours          float64
}

// Report is the single artifact handed to the export layer and the mail
// drafter. TotalHours is accumulated unrounded; rounding to two decimals
// happens at presentation time only.
type Report struct {
	Year       int
	Month      time.Month
	Period     string
	Rows       []Row
	TotalHours float64
	Warnings   []string
}

// Resolver resolves reference IDs to display names in O(1) per note using
// precomputed lookup maps.
type Resolver struct {
	clients     map[string]Client
	projects    map[string]Project
	consultants map[string]Consultant
}

// NewResolver builds lookup maps over read-only snapshots of the reference
// lists. The resolver never mutates them.
func NewResolver(clients []Client, projects []Project, consultants []Consultant) *Resolver {
	r := &Resolver{
		clients:     make(map[string]Client, len(clients)),
		projects:    make(map[string]Project, len(projects)),
		consultants: make(map[string]Consultant, len(consultants)),
	}
	for _, c := range clients {
		r.clients[c.ID] = c
	}
	for _, p := range projects {
		r.projects[p.ID] = p
	}
	for _, c := range consultants {
		r.consultants[c.ID] = c
	}
	return r
}

// ClientName resolves a client ID, falling back to the note's project when
// the note itself carries no client.
func (r *Resolver) ClientName(n ServiceNote) string {
	id := n.ClientID
	if id == "" {
		if p, ok := r.projects[n.ProjectID]; ok {
			id = p.ClientID
		}
	}
	if c, ok := r.clients[id]; ok {
		return c.Name
	}
	return PlaceholderNotFound
}

func (r *Resolver) ProjectName(id string) string {
	if p, ok := r.projects[id]; ok {
		return p.Name
	}
	return PlaceholderNotFound
}

func (r *Resolver) ConsultantName(id string) string {
	if c, ok := r.consultants[id]; ok {
		return c.Name
	}
	return PlaceholderUnassigned
}

// Enrich resolves a note's references into a report row. Unresolved
// references yield placeholders, never an error.
func (r *Resolver) Enrich(n ServiceNote) Row {
	return Row{
		NoteID:         n.ID,
		ClientName:     r.ClientName(n),
		ProjectName:    r.ProjectName(n.ProjectID),
		ConsultantName: r.ConsultantName(n.ConsultantID),
		Date:           n.Date,
		Hours:          Duration(n.Start, n.End),
	}
}

// FilterByPeriod returns the notes whose calendar year and month match the
// selector. Input order is preserved; no side effects.
func FilterByPeriod(notes []ServiceNote, year int, month time.Month) []ServiceNote {
	var out []ServiceNote
	for _, n := range notes {
		if n.Date.Year == year && n.Date.Month == month {
			out = append(out, n)
		}
	}
	return out
}

// TotalHours sums per-note durations without intermediate rounding, so the
// total always equals the sum of the displayed rows.
func TotalHours(notes []ServiceNote) float64 {
	var total float64
	for _, n := range notes {
		total += Duration(n.Start, n.End)
	}
	return total
}

// AvailableYears returns the distinct years present among the notes, always
// including the current year, sorted descending.
func AvailableYears(notes []ServiceNote, now time.Time) []int {
	seen := map[int]struct{}{now.Year(): {}}
	for _, n := range notes {
		if n.Date.IsZero() {
			continue
		}
		seen[n.Date.Year] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// BuildReport filters, enriches and totals the notes for one period. Notes
// with an unset date are skipped and surfaced as data-quality warnings;
// an empty period yields a zero-row report, not an error.
func BuildReport(notes []ServiceNote, resolver *Resolver, year int, month time.Month) Report {
	report := Report{
		Year:   year,
		Month:  month,
		Period: PeriodLabel(year, month),
	}
	for _, n := range notes {
		if n.Date.IsZero() {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("note %s has an invalid date and was excluded", n.ID))
			continue
		}
		if n.Date.Year != year || n.Date.Month != month {
			continue
		}
		row := resolver.Enrich(n)
		report.Rows = append(report.Rows, row)
		report.TotalHours += row.Hours
	}
	return report
}
