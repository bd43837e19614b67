package sheets

import (
	"context"

	"notas/internal/export"
)

// NoteWriter mirrors a resolved service note to an external spreadsheet.
type NoteWriter interface {
	AppendNote(ctx context.Context, doc export.NoteDocument) (rowRef string, err error)
}
