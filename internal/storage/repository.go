package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"notas/internal/core"
	"notas/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements store.Store on a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const noteColumns = `id, client_id, project_id, consultant_id, format, note_date,
	start_time, end_time, client_representative, description,
	consultant_signature, client_signature`

func scanNote(row interface{ Scan(...any) error }) (core.ServiceNote, error) {
	var n core.ServiceNote
	var format, date, start, end string
	err := row.Scan(&n.ID, &n.ClientID, &n.ProjectID, &n.ConsultantID, &format,
		&date, &start, &end, &n.ClientRepresentative, &n.Description,
		&n.ConsultantSignature, &n.ClientSignature)
	if err != nil {
		return core.ServiceNote{}, err
	}
	n.Format = core.Format(format)
	// Malformed stored values degrade to zero values; the report engine
	// skips zero dates and reports them as warnings.
	if d, err := core.ParseDate(date); err == nil {
		n.Date = d
	}
	if c, err := core.ParseClock(start); err == nil {
		n.Start = c
	}
	if c, err := core.ParseClock(end); err == nil {
		n.End = c
	}
	return n, nil
}

func (r *SQLiteRepository) ListNotes(ctx context.Context) ([]core.ServiceNote, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM service_notes ORDER BY note_date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []core.ServiceNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *SQLiteRepository) GetNote(ctx context.Context, id string) (core.ServiceNote, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM service_notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ServiceNote{}, store.ErrNotFound
	}
	if err != nil {
		return core.ServiceNote{}, fmt.Errorf("get note %s: %w", id, err)
	}
	return n, nil
}

func (r *SQLiteRepository) UpsertNote(ctx context.Context, note core.ServiceNote) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO service_notes (
			id, client_id, project_id, consultant_id, format, note_date,
			start_time, end_time, client_representative, description,
			consultant_signature, client_signature
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			project_id = excluded.project_id,
			consultant_id = excluded.consultant_id,
			format = excluded.format,
			note_date = excluded.note_date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			client_representative = excluded.client_representative,
			description = excluded.description,
			consultant_signature = excluded.consultant_signature,
			client_signature = excluded.client_signature,
			updated_at = CURRENT_TIMESTAMP,
			synced = FALSE,
			sync_error = FALSE,
			version = service_notes.version + 1`,
		note.ID, note.ClientID, note.ProjectID, note.ConsultantID,
		string(note.Format), note.Date.String(), note.Start.String(),
		note.End.String(), note.ClientRepresentative, note.Description,
		note.ConsultantSignature, note.ClientSignature)
	if err != nil {
		return fmt.Errorf("upsert note %s: %w", note.ID, err)
	}

	slog.InfoContext(ctx, "Service note saved to SQLite",
		"id", note.ID,
		"date", note.Date.String(),
		"project_id", note.ProjectID)
	return nil
}

func (r *SQLiteRepository) ListClients(ctx context.Context) ([]core.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, tax_id FROM clients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []core.Client
	for rows.Next() {
		var c core.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.TaxID); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *SQLiteRepository) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, tax_id) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.TaxID)
	if err != nil {
		return core.Client{}, fmt.Errorf("create client: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) UpdateClient(ctx context.Context, c core.Client) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clients SET name = ?, tax_id = ? WHERE id = ?`,
		c.Name, c.TaxID, c.ID)
	if err != nil {
		return fmt.Errorf("update client %s: %w", c.ID, err)
	}
	return checkAffected(res)
}

func (r *SQLiteRepository) DeleteClient(ctx context.Context, id string, cascade bool) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var dependents int
		err := tx.QueryRowContext(ctx, `
			SELECT (SELECT COUNT(*) FROM service_notes WHERE client_id = ?)
			     + (SELECT COUNT(*) FROM projects WHERE client_id = ?)`,
			id, id).Scan(&dependents)
		if err != nil {
			return fmt.Errorf("count client dependents: %w", err)
		}
		if dependents > 0 && !cascade {
			return &store.ReferencedError{Kind: "client", ID: id, Dependents: dependents}
		}
		if cascade {
			if _, err := tx.ExecContext(ctx,
				`UPDATE service_notes SET client_id = '' WHERE client_id = ?`, id); err != nil {
				return fmt.Errorf("clear note client references: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE projects SET client_id = '' WHERE client_id = ?`, id); err != nil {
				return fmt.Errorf("clear project client references: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete client %s: %w", id, err)
		}
		return checkAffected(res)
	})
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, client_id FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []core.Project
	for rows.Next() {
		var p core.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.ClientID); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, client_id) VALUES (?, ?, ?)`,
		p.ID, p.Name, p.ClientID)
	if err != nil {
		return core.Project{}, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) UpdateProject(ctx context.Context, p core.Project) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, client_id = ? WHERE id = ?`,
		p.Name, p.ClientID, p.ID)
	if err != nil {
		return fmt.Errorf("update project %s: %w", p.ID, err)
	}
	return checkAffected(res)
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string, cascade bool) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var dependents int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM service_notes WHERE project_id = ?`, id).Scan(&dependents)
		if err != nil {
			return fmt.Errorf("count project dependents: %w", err)
		}
		if dependents > 0 && !cascade {
			return &store.ReferencedError{Kind: "project", ID: id, Dependents: dependents}
		}
		if cascade {
			if _, err := tx.ExecContext(ctx,
				`UPDATE service_notes SET project_id = '' WHERE project_id = ?`, id); err != nil {
				return fmt.Errorf("clear note project references: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete project %s: %w", id, err)
		}
		return checkAffected(res)
	})
}

func (r *SQLiteRepository) ListConsultants(ctx context.Context) ([]core.Consultant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM consultants ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list consultants: %w", err)
	}
	defer rows.Close()

	var consultants []core.Consultant
	for rows.Next() {
		var c core.Consultant
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan consultant: %w", err)
		}
		consultants = append(consultants, c)
	}
	return consultants, rows.Err()
}

func (r *SQLiteRepository) CreateConsultant(ctx context.Context, c core.Consultant) (core.Consultant, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO consultants (id, name) VALUES (?, ?)`, c.ID, c.Name)
	if err != nil {
		return core.Consultant{}, fmt.Errorf("create consultant: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) UpdateConsultant(ctx context.Context, c core.Consultant) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE consultants SET name = ? WHERE id = ?`, c.Name, c.ID)
	if err != nil {
		return fmt.Errorf("update consultant %s: %w", c.ID, err)
	}
	return checkAffected(res)
}

func (r *SQLiteRepository) DeleteConsultant(ctx context.Context, id string, cascade bool) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var dependents int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM service_notes WHERE consultant_id = ?`, id).Scan(&dependents)
		if err != nil {
			return fmt.Errorf("count consultant dependents: %w", err)
		}
		if dependents > 0 && !cascade {
			return &store.ReferencedError{Kind: "consultant", ID: id, Dependents: dependents}
		}
		if cascade {
			if _, err := tx.ExecContext(ctx,
				`UPDATE service_notes SET consultant_id = '' WHERE consultant_id = ?`, id); err != nil {
				return fmt.Errorf("clear note consultant references: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM consultants WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete consultant %s: %w", id, err)
		}
		return checkAffected(res)
	})
}

// PendingSyncNote is the minimal payload the sync worker needs to queue a
// note for mirroring.
type PendingSyncNote struct {
	ID        string
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncNotes returns notes not yet mirrored to the spreadsheet.
func (r *SQLiteRepository) GetPendingSyncNotes(ctx context.Context, limit int) ([]PendingSyncNote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, created_at FROM service_notes
		WHERE synced = FALSE AND sync_error = FALSE
		ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync notes: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncNote
	for rows.Next() {
		var p PendingSyncNote
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync note: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkSynced records a successful mirror of a note.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE service_notes SET synced = TRUE, sync_error = FALSE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark note synced: %w", err)
	}
	slog.InfoContext(ctx, "Service note marked as synced", "id", id)
	return nil
}

// MarkSyncError flags a note whose mirror attempt failed permanently.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE service_notes SET sync_error = TRUE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark note sync error: %w", err)
	}
	slog.WarnContext(ctx, "Service note marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
