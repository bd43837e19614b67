package export

import (
	"fmt"
	"strings"
	"time"

	"notas/internal/core"
)

// slug lowercases a name and collapses anything outside [a-z0-9] into
// single hyphens, so filenames stay portable.
func slug(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// NoteFilename names a single-note PDF after its project, falling back to
// "general" when no project is set.
func NoteFilename(projectName string) string {
	s := slug(projectName)
	if s == "" {
		s = "general"
	}
	return fmt.Sprintf("service-note-%s.pdf", s)
}

// SummaryFilename names a monthly report PDF after its period.
func SummaryFilename(year int, month time.Month) string {
	return fmt.Sprintf("monthly-summary-%s-%d.pdf", slug(core.MonthName(month)), year)
}
