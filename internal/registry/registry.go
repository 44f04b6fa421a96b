// Package registry persists each user's current counseling stage.
//
// The registry is the source of truth on session start and on explicit
// stage-confirmation updates. Mid-conversation decisions consult only
// the in-memory session copy.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/eirene/internal/stage"
	"go.uber.org/zap"
)

// Registry is the keyed stage store consumed by the engine.
//
// Insert and Update report success as a boolean: invalid stage values
// and missing users are rejected, not raised.
type Registry interface {
	// Get returns the user's stage, or ok=false if the user is absent.
	Get(ctx context.Context, userID string) (st stage.Stage, ok bool, err error)
	// Insert records a stage for a new user. Returns false when the
	// stage is invalid or the user already exists.
	Insert(ctx context.Context, userID string, st stage.Stage) bool
	// Update replaces an existing user's stage. Returns false when the
	// stage is invalid or the user is not found.
	Update(ctx context.Context, userID string, st stage.Stage) bool
	// Delete removes a user. Returns false when the user is not found.
	Delete(ctx context.Context, userID string) bool
	Close() error
}

// SQLiteRegistry implements Registry on an embedded SQLite database.
type SQLiteRegistry struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates or opens a stage registry at path.
func Open(path string, logger *zap.Logger) (*SQLiteRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating registry directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}

	r := &SQLiteRegistry{db: db, logger: logger}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing registry schema: %w", err)
	}

	return r, nil
}

func (r *SQLiteRegistry) initSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS user_stages (
			user_id TEXT PRIMARY KEY,
			stage   TEXT NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database.
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

// Get returns the user's stage, or ok=false if the user is absent.
func (r *SQLiteRegistry) Get(ctx context.Context, userID string) (stage.Stage, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		"SELECT stage FROM user_stages WHERE user_id = ?", userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying stage for %s: %w", userID, err)
	}

	st, ok := stage.Parse(raw)
	if !ok {
		// A row we cannot interpret is treated as absent so the caller
		// re-initializes rather than operating on garbage.
		r.logger.Warn("registry holds invalid stage value",
			zap.String("user_id", userID),
			zap.String("stage", raw),
		)
		return "", false, nil
	}
	return st, true, nil
}

// Insert records a stage for a new user.
func (r *SQLiteRegistry) Insert(ctx context.Context, userID string, st stage.Stage) bool {
	if !st.IsValid() {
		r.logger.Warn("rejecting invalid stage on insert",
			zap.String("user_id", userID),
			zap.String("stage", st.String()),
		)
		return false
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO user_stages (user_id, stage) VALUES (?, ?)", userID, st.String())
	if err != nil {
		r.logger.Error("stage insert failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return false
	}

	r.logger.Info("registered user stage",
		zap.String("user_id", userID),
		zap.String("stage", st.String()),
	)
	return true
}

// Update replaces an existing user's stage.
func (r *SQLiteRegistry) Update(ctx context.Context, userID string, st stage.Stage) bool {
	if !st.IsValid() {
		r.logger.Warn("rejecting invalid stage on update",
			zap.String("user_id", userID),
			zap.String("stage", st.String()),
		)
		return false
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE user_stages SET stage = ? WHERE user_id = ?", st.String(), userID)
	if err != nil {
		r.logger.Error("stage update failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return false
	}

	affected, err := res.RowsAffected()
	if err != nil || affected == 0 {
		r.logger.Warn("stage update matched no user", zap.String("user_id", userID))
		return false
	}

	r.logger.Info("updated user stage",
		zap.String("user_id", userID),
		zap.String("stage", st.String()),
	)
	return true
}

// Delete removes a user from the registry.
func (r *SQLiteRegistry) Delete(ctx context.Context, userID string) bool {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM user_stages WHERE user_id = ?", userID)
	if err != nil {
		r.logger.Error("stage delete failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return false
	}

	affected, err := res.RowsAffected()
	return err == nil && affected > 0
}
