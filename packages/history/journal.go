package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/hitdesk/packages/db"
)

// ErrEntryNotFound is returned when no journal entry matches an id.
var ErrEntryNotFound = errors.New("history entry not found")

// ErrAmbiguousID is returned when an id prefix matches several entries.
var ErrAmbiguousID = errors.New("history id prefix is ambiguous")

var journalSchema = []string{
	`CREATE TABLE IF NOT EXISTS history (
		id           TEXT PRIMARY KEY,
		remote_id    TEXT NOT NULL DEFAULT '',
		workspace_id TEXT NOT NULL DEFAULT '',
		method       TEXT NOT NULL,
		url          TEXT NOT NULL,
		request      TEXT NOT NULL,
		status_code  INTEGER NOT NULL DEFAULT 0,
		time_ms      INTEGER NOT NULL DEFAULT 0,
		error_kind   TEXT NOT NULL DEFAULT '',
		created_at   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_workspace ON history (workspace_id, created_at)`,
}

const entryColumns = `id, remote_id, workspace_id, request, status_code, time_ms, error_kind, created_at`

// Journal keeps history in SQLite so it survives restarts.
type Journal struct {
	db *db.Client
}

// OpenJournal migrates the schema and returns a journal on client.
func OpenJournal(ctx context.Context, client *db.Client) (*Journal, error) {
	if err := client.Migrate(ctx, journalSchema...); err != nil {
		return nil, fmt.Errorf("migrate history journal: %w", err)
	}
	return &Journal{db: client}, nil
}

// Prepend stores entry. Entries are listed newest first, so prepending is an insert.
func (j *Journal) Prepend(entry Entry) error {
	request, err := json.Marshal(entry.Request)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	_, err = j.db.Exec(context.Background(),
		`INSERT INTO history (id, remote_id, workspace_id, method, url, request, status_code, time_ms, error_kind, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.RemoteID, entry.WorkspaceID, entry.Request.Method, entry.Request.URL,
		string(request), entry.StatusCode, entry.TimeMs, entry.ErrorKind, entry.Timestamp.UnixNano(),
	)
	return err
}

func (j *Journal) SetRemoteID(localID, remoteID string) error {
	res, err := j.db.Exec(context.Background(), `UPDATE history SET remote_id = ? WHERE id = ?`, remoteID, localID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// List returns entries newest first. An empty workspaceID lists every
// workspace; limit <= 0 means no limit.
func (j *Journal) List(ctx context.Context, workspaceID string, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM history`
	var args []interface{}
	if workspaceID != "" {
		query += ` WHERE workspace_id = ?`
		args = append(args, workspaceID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	entries := []Entry{}
	err := j.db.Rows(ctx, query, func(rows *sql.Rows) error {
		e, err := scanEntry(rows)
		if err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	}, args...)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Get returns the entry whose id equals or starts with id.
func (j *Journal) Get(ctx context.Context, id string) (*Entry, error) {
	if id == "" {
		return nil, ErrEntryNotFound
	}
	var matches []Entry
	err := j.db.Rows(ctx, `SELECT `+entryColumns+` FROM history WHERE id = ? OR substr(id, 1, ?) = ? LIMIT 2`,
		func(rows *sql.Rows) error {
			e, err := scanEntry(rows)
			if err != nil {
				return err
			}
			matches = append(matches, e)
			return nil
		}, id, len(id), id)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, ErrEntryNotFound
	case 1:
		return &matches[0], nil
	default:
		for i := range matches {
			if matches[i].ID == id {
				return &matches[i], nil
			}
		}
		return nil, ErrAmbiguousID
	}
}

// Clear deletes the entries of workspaceID, or every entry when it is empty.
func (j *Journal) Clear(ctx context.Context, workspaceID string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if workspaceID == "" {
		res, err = j.db.Exec(ctx, `DELETE FROM history`)
	} else {
		res, err = j.db.Exec(ctx, `DELETE FROM history WHERE workspace_id = ?`, workspaceID)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns the number of stored entries.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	result, err := j.db.Query(ctx, `SELECT COUNT(*) AS n FROM history`)
	if err != nil {
		return 0, err
	}
	if len(result.Rows) == 0 {
		return 0, nil
	}
	n, _ := result.Rows[0]["n"].(int64)
	return n, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e       Entry
		request string
		created int64
	)
	if err := rows.Scan(&e.ID, &e.RemoteID, &e.WorkspaceID, &request, &e.StatusCode, &e.TimeMs, &e.ErrorKind, &created); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(request), &e.Request); err != nil {
		return Entry{}, fmt.Errorf("decode request of %s: %w", e.ID, err)
	}
	e.Timestamp = time.Unix(0, created).UTC()
	return e, nil
}
