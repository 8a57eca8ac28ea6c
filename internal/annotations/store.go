// Package annotations persists triage state (status, priorities, comments)
// for chunks and duplicate groups. The table is owned by this store; the
// query layer only joins against it by target id.
package annotations

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"codedup/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS annotations (
    session_id     TEXT NOT NULL,
    target_type    TEXT NOT NULL,
    target_id      TEXT NOT NULL,
    status         TEXT,
    human_priority INTEGER,
    ai_priority    INTEGER,
    comment        TEXT,
    updated_at     REAL NOT NULL,
    PRIMARY KEY (session_id, target_type, target_id)
);
`

// Store is a SQLite-backed annotation store scoped to one session id.
type Store struct {
	db         *sql.DB
	session    string
	allowHuman bool
}

// SetParams carries one upsert. Priority is a legacy alias for AIPriority
// and is only used when AIPriority is unset.
type SetParams struct {
	TargetType    string
	TargetID      string
	Status        *string
	Priority      *int
	AIPriority    *int
	HumanPriority *int
	Comment       *string
}

// ListParams filters the listing; zero values mean "any".
type ListParams struct {
	TargetType string
	Status     string
	Limit      int
	Offset     int
}

// Open creates or opens the database at dbPath and initializes the schema.
// allowHuman gates whether caller-supplied human_priority values are written.
func Open(dbPath, session string, allowHuman bool) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create annotations dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open annotations db: %w", err)
	}
	// SQLite benefits from a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init annotations schema: %w", err)
	}

	return &Store{db: db, session: session, allowHuman: allowHuman}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Session returns the session id this store is scoped to.
func (s *Store) Session() string {
	return s.session
}

// AllowHumanPriority reports whether human_priority writes are enabled.
func (s *Store) AllowHumanPriority() bool {
	return s.allowHuman
}

// Set upserts one annotation and returns the stored row. ai_priority always
// takes the caller value; human_priority is kept unless updates are allowed
// and a new value is supplied.
func (s *Store) Set(p SetParams) (*models.Annotation, error) {
	aiPriority := p.AIPriority
	if aiPriority == nil {
		aiPriority = p.Priority
	}
	var humanPriority *int
	if s.allowHuman {
		humanPriority = p.HumanPriority
	}

	now := float64(time.Now().UnixNano()) / float64(time.Second)
	_, err := s.db.Exec(`
        INSERT INTO annotations (session_id, target_type, target_id, status, human_priority, ai_priority, comment, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(session_id, target_type, target_id)
        DO UPDATE SET status=excluded.status,
                      human_priority=COALESCE(excluded.human_priority, annotations.human_priority),
                      ai_priority=excluded.ai_priority,
                      comment=excluded.comment,
                      updated_at=excluded.updated_at`,
		s.session, p.TargetType, p.TargetID, p.Status, humanPriority, aiPriority, p.Comment, now)
	if err != nil {
		return nil, fmt.Errorf("upsert annotation: %w", err)
	}

	return s.Get(p.TargetType, p.TargetID)
}

// Get returns the annotation for a target, or (nil, nil) when absent.
func (s *Store) Get(targetType, targetID string) (*models.Annotation, error) {
	row := s.db.QueryRow(`
        SELECT session_id, target_type, target_id, status, human_priority, ai_priority, comment, updated_at
        FROM annotations
        WHERE session_id=? AND target_type=? AND target_id=?`,
		s.session, targetType, targetID)

	a, err := scanAnnotation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get annotation: %w", err)
	}
	return a, nil
}

// List returns annotations for the session, newest first.
func (s *Store) List(p ListParams) ([]models.Annotation, error) {
	if p.Limit <= 0 {
		p.Limit = 100
	}

	q := `SELECT session_id, target_type, target_id, status, human_priority, ai_priority, comment, updated_at
          FROM annotations WHERE session_id=?`
	args := []any{s.session}
	if p.TargetType != "" {
		q += " AND target_type=?"
		args = append(args, p.TargetType)
	}
	if p.Status != "" {
		q += " AND status=?"
		args = append(args, p.Status)
	}
	q += " ORDER BY updated_at DESC LIMIT ? OFFSET ?"
	args = append(args, p.Limit, p.Offset)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	var items []models.Annotation
	for rows.Next() {
		a, err := scanAnnotation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		items = append(items, *a)
	}
	return items, rows.Err()
}

// StatusMap returns target_id → status for targets whose status is in the
// given set. The query layer uses it as an exclusion overlay.
func (s *Store) StatusMap(targetType string, statuses []string) (map[string]string, error) {
	var filtered []string
	for _, st := range statuses {
		if st != "" {
			filtered = append(filtered, st)
		}
	}
	if len(filtered) == 0 {
		return map[string]string{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filtered)), ",")
	q := fmt.Sprintf(`SELECT target_id, status FROM annotations
        WHERE session_id=? AND target_type=? AND status IN (%s)`, placeholders)

	args := []any{s.session, targetType}
	for _, st := range filtered {
		args = append(args, st)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("load status map: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		out[id] = status
	}
	return out, rows.Err()
}

func scanAnnotation(scan func(dest ...any) error) (*models.Annotation, error) {
	var a models.Annotation
	var status, comment sql.NullString
	var human, ai sql.NullInt64
	if err := scan(&a.SessionID, &a.TargetType, &a.TargetID, &status, &human, &ai, &comment, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if status.Valid {
		a.Status = &status.String
	}
	if human.Valid {
		v := int(human.Int64)
		a.HumanPriority = &v
	}
	if ai.Valid {
		v := int(ai.Int64)
		a.AIPriority = &v
	}
	if comment.Valid {
		a.Comment = &comment.String
	}
	return &a, nil
}
