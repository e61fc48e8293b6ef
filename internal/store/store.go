// Package store persists skills, projects and the audit trail in SQLite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"venom/internal/api"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for created_at and audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (or creates) the database at path and applies pending migrations.
func Open(path string, opts ...Option) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer at a time; SQLite serialises anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	// m.Close would also close db through the driver, so only the source is released.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	defer src.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListSkills returns every skill row, newest first.
func (s *Store) ListSkills(ctx context.Context) ([]api.Skill, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, version, manifest, metadata, created_at FROM skills ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}
	defer rows.Close()

	skills := []api.Skill{}
	for rows.Next() {
		var sk api.Skill
		var manifest, metadata string
		if err := rows.Scan(&sk.ID, &sk.Name, &sk.Version, &manifest, &metadata, &sk.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		sk.Manifest = json.RawMessage(manifest)
		sk.Metadata = json.RawMessage(metadata)
		skills = append(skills, sk)
	}
	return skills, rows.Err()
}

// SkillNames returns the distinct names of all registered skills.
func (s *Store) SkillNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM skills ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query skill names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan skill name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// AddSkill inserts a skill version and returns its id.
func (s *Store) AddSkill(ctx context.Context, name, version string, manifest, metadata json.RawMessage) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO skills (name, version, manifest, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		name, version, jsonOrEmpty(manifest), jsonOrEmpty(metadata), s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("insert skill: %w", err)
	}
	return res.LastInsertId()
}

// ListProjects returns every project with its required skills, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]api.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, created_at FROM projects ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	projects := []api.Project{}
	index := map[int64]int{}
	for rows.Next() {
		var p api.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.RequiredSkills = []string{}
		index[p.ID] = len(projects)
		projects = append(projects, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The pool holds a single connection, so skills are fetched after the
	// project cursor is closed rather than per row.
	srows, err := s.db.QueryContext(ctx, `SELECT project_id, skill_name FROM project_skills ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query project skills: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		var pid int64
		var name string
		if err := srows.Scan(&pid, &name); err != nil {
			return nil, fmt.Errorf("scan project skill: %w", err)
		}
		if i, ok := index[pid]; ok {
			projects[i].RequiredSkills = append(projects[i].RequiredSkills, name)
		}
	}
	return projects, srows.Err()
}

// GetProject returns a single project, or ErrNotFound.
func (s *Store) GetProject(ctx context.Context, id int64) (api.Project, error) {
	var p api.Project
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Project{}, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return api.Project{}, fmt.Errorf("query project: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT skill_name FROM project_skills WHERE project_id = ? ORDER BY id`, id)
	if err != nil {
		return api.Project{}, fmt.Errorf("query project skills: %w", err)
	}
	defer rows.Close()
	p.RequiredSkills = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return api.Project{}, fmt.Errorf("scan project skill: %w", err)
		}
		p.RequiredSkills = append(p.RequiredSkills, name)
	}
	return p, rows.Err()
}

// AddProject inserts a project and its required skills in one transaction.
func (s *Store) AddProject(ctx context.Context, name, description string, requiredSkills []string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO projects (name, description, created_at) VALUES (?, ?, ?)`,
		name, description, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, sk := range requiredSkills {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO project_skills (project_id, skill_name) VALUES (?, ?)`, id, sk); err != nil {
			return 0, fmt.Errorf("insert project skill: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// AppendAudit records an audit entry. details is marshalled to JSON.
func (s *Store) AppendAudit(ctx context.Context, actor, action string, details any) error {
	b, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO audits (ts, actor, action, details) VALUES (?, ?, ?, ?)`,
		s.now().Unix(), actor, action, string(b)); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// ListAudits returns at most limit audit entries, newest first.
func (s *Store) ListAudits(ctx context.Context, limit int) ([]api.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, actor, action, details FROM audits ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audits: %w", err)
	}
	defer rows.Close()

	entries := []api.AuditEntry{}
	for rows.Next() {
		var e api.AuditEntry
		var details string
		if err := rows.Scan(&e.ID, &e.TS, &e.Actor, &e.Action, &details); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.Details = json.RawMessage(details)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func jsonOrEmpty(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "{}"
	}
	return string(raw)
}
