// Package feedback provides the human-feedback archive and the few-shot
// augmenter that biases future generations with well-rated prior solutions.
//
// The archive is append-only: stored solutions and feedback records are never
// edited or deleted, and a solution's feedback list grows monotonically.
package feedback

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/mathd/internal/solution"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrInvalidRating is returned when a rating falls outside [1,5].
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// Record is one piece of feedback attached to a stored solution.
type Record struct {
	ID         string    `json:"id"`
	SolutionID string    `json:"solution_id"`
	Rating     int       `json:"rating"`
	Text       string    `json:"feedback_text,omitempty"`
	Correction string    `json:"correction,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// StoredSolution is one archived answered question with its feedback.
type StoredSolution struct {
	ID        string            `json:"id"`
	Question  string            `json:"question"`
	Solution  solution.Solution `json:"solution"`
	CreatedAt time.Time         `json:"created_at"`
	Feedback  []Record          `json:"feedback,omitempty"`
}

// Store wraps a SQLite database holding solutions and their feedback.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the archive database in dataDir and runs pending
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
		dsn = filepath.Join(dataDir, "feedback.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Single connection avoids "database is locked" errors under
	// concurrent pipelines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
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

// migrate applies embedded SQL migrations that haven't run yet.
func (s *Store) migrate() error {
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
			return fmt.Errorf("beginning migration %d: %w", version, err)
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

// parseMigrationVersion extracts the numeric prefix from "0001_init.sql".
func parseMigrationVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("malformed migration filename %q", name)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("malformed migration version in %q: %w", name, err)
	}
	return version, nil
}

// StoreSolution archives a solution and returns its new archive id.
func (s *Store) StoreSolution(ctx context.Context, question string, sol *solution.Solution) (string, error) {
	steps, err := json.Marshal(sol.Steps)
	if err != nil {
		return "", fmt.Errorf("encoding steps: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO solutions (id, question, final_answer, steps, source_retrieved, reference_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, question, sol.FinalAnswer, string(steps), sol.SourceRetrieved, sol.ReferenceID, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("inserting solution: %w", err)
	}
	return id, nil
}

// AddFeedback attaches a feedback record to a stored solution. It returns
// false (with no error and no mutation) when the solution id is unknown. The
// existence check and insert run in one transaction, so a partial write can
// never leave a feedback row pointing at a missing solution.
func (s *Store) AddFeedback(ctx context.Context, solutionID string, rating int, text, correction string) (bool, error) {
	if rating < 1 || rating > 5 {
		return false, ErrInvalidRating
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM solutions WHERE id = ?", solutionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking solution %s: %w", solutionID, err)
	}
	if exists == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO feedback (id, solution_id, rating, feedback_text, correction, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), solutionID, rating, text, correction, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("inserting feedback: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing feedback: %w", err)
	}
	return true, nil
}

// GetSolutionWithFeedback returns a stored solution with its feedback records
// resolved, or nil when the id is unknown. Feedback is ordered by creation
// time, which matches insertion order.
func (s *Store) GetSolutionWithFeedback(ctx context.Context, id string) (*StoredSolution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, question, final_answer, steps, source_retrieved, reference_id, created_at
		 FROM solutions WHERE id = ?`, id)

	stored, err := scanSolution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	feedback, err := s.feedbackFor(ctx, id)
	if err != nil {
		return nil, err
	}
	stored.Feedback = feedback
	return stored, nil
}

// FindSimilarWithGoodFeedback returns stored solutions that have at least one
// feedback record rated minRating or higher, with feedback resolved.
//
// Selection is deliberately naive: any solution with good feedback qualifies,
// regardless of similarity to the question. The question parameter is kept
// for the contract; a ranked implementation can use it later.
func (s *Store) FindSimilarWithGoodFeedback(ctx context.Context, question string, minRating int) ([]StoredSolution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT s.id, s.question, s.final_answer, s.steps, s.source_retrieved, s.reference_id, s.created_at
		 FROM solutions s
		 JOIN feedback f ON f.solution_id = s.id
		 WHERE f.rating >= ?
		 ORDER BY s.rowid`, minRating)
	if err != nil {
		return nil, fmt.Errorf("querying solutions: %w", err)
	}
	defer rows.Close()

	var out []StoredSolution
	for rows.Next() {
		stored, err := scanSolution(rows)
		if err != nil {
			return nil, err
		}
		feedback, err := s.feedbackFor(ctx, stored.ID)
		if err != nil {
			return nil, err
		}
		stored.Feedback = feedback
		out = append(out, *stored)
	}
	return out, rows.Err()
}

// feedbackFor loads all feedback records for a solution in creation order.
func (s *Store) feedbackFor(ctx context.Context, solutionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, solution_id, rating, feedback_text, correction, created_at
		 FROM feedback WHERE solution_id = ? ORDER BY rowid`, solutionID)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var text, correction sql.NullString
		if err := rows.Scan(&rec.ID, &rec.SolutionID, &rec.Rating, &text, &correction, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		rec.Text = text.String
		rec.Correction = correction.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSolution(row rowScanner) (*StoredSolution, error) {
	var (
		stored      StoredSolution
		stepsJSON   string
		referenceID sql.NullString
	)
	err := row.Scan(&stored.ID, &stored.Question, &stored.Solution.FinalAnswer,
		&stepsJSON, &stored.Solution.SourceRetrieved, &referenceID, &stored.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(stepsJSON), &stored.Solution.Steps); err != nil {
		return nil, fmt.Errorf("decoding steps for %s: %w", stored.ID, err)
	}
	stored.Solution.ReferenceID = referenceID.String
	return &stored, nil
}
