// Package storage persists documents and their check history for the web
// demo in a local SQLite database.
package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for documents and checks.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "redline.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Documents ---

func (s *Store) SaveDocument(d Document) error {
	_, err := s.db.Exec(`
		INSERT INTO documents (id, title, content, language, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.Title, d.Content, d.Language,
		d.CreatedAt.UTC().Format(time.RFC3339), d.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetDocument(id string) (Document, error) {
	var d Document
	var createdAt, updatedAt string
	err := s.db.QueryRow(`
		SELECT id, title, content, language, created_at, updated_at
		FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Title, &d.Content, &d.Language, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Document{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return Document{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return d, nil
}

func (s *Store) ListDocuments(limit int) ([]Document, error) {
	rows, err := s.db.Query(`
		SELECT id, title, content, language, created_at, updated_at
		FROM documents ORDER BY updated_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Document
	for rows.Next() {
		var d Document
		var createdAt, updatedAt string
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Language, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// UpdateDocument replaces a document's title, content and language and bumps
// updated_at.
func (s *Store) UpdateDocument(id, title, content, language string) error {
	res, err := s.db.Exec(`
		UPDATE documents SET title = ?, content = ?, language = ?, updated_at = ?
		WHERE id = ?`,
		title, content, language, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document and its check history.
func (s *Store) DeleteDocument(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM checks WHERE document_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// --- Checks ---

func (s *Store) SaveCheck(c CheckRecord) error {
	matchesJSON := c.MatchesJSON
	if matchesJSON == "" {
		matchesJSON = "[]"
	}
	_, err := s.db.Exec(`
		INSERT INTO checks (id, document_id, created_at, language, match_count, matches_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.DocumentID, c.CreatedAt.UTC().Format(time.RFC3339),
		c.Language, c.MatchCount, matchesJSON,
	)
	return err
}

// ListChecks returns a document's check history, newest first.
func (s *Store) ListChecks(documentID string, limit int) ([]CheckRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, document_id, created_at, language, match_count, matches_json
		FROM checks WHERE document_id = ?
		ORDER BY created_at DESC LIMIT ?`, documentID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []CheckRecord
	for rows.Next() {
		var c CheckRecord
		var createdAt string
		if err := rows.Scan(&c.ID, &c.DocumentID, &createdAt, &c.Language, &c.MatchCount, &c.MatchesJSON); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}
