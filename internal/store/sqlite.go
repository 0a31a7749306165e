package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"respawnbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// SQLite implements TimerStore and UserStore on an embedded database.
type SQLite struct {
	db  *sql.DB
	log logx.Logger
}

type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// OpenSQLite opens (or creates) the database file, applies pragmas and
// migrations, and returns the store.
func OpenSQLite(ctx context.Context, cfg Config, log logx.Logger) (*SQLite, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	s := &SQLite{db: db, log: log}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- TimerStore ----

func (s *SQLite) CreateTimer(ctx context.Context, t Timer) (Timer, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO timers(id, chat_id, user_id, boss_name, respawn_at, epoch) VALUES(?,?,?,?,?,?)`,
		t.ID, t.ChatID, t.UserID, t.Boss, t.RespawnAt.Unix(), boolToInt(t.Epoch),
	)
	if err != nil {
		return Timer{}, err
	}
	t.RespawnAt = time.Unix(t.RespawnAt.Unix(), 0).UTC()
	return t, nil
}

func (s *SQLite) TimerExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM timers WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLite) UpdateRespawn(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE timers SET respawn_at = ? WHERE id = ?`, at.Unix(), id)
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

func (s *SQLite) DeleteTimer(ctx context.Context, userID int64, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var owner int64
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM timers WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != userID {
		return ErrNotOwned
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM timers WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

const timerColumns = `id, chat_id, user_id, boss_name, respawn_at, epoch`

func (s *SQLite) ListByChat(ctx context.Context, chatID int64, limit int) ([]Timer, error) {
	return s.listTimers(ctx,
		`SELECT `+timerColumns+` FROM timers WHERE chat_id = ? ORDER BY respawn_at ASC LIMIT ?`,
		chatID, normLimit(limit))
}

func (s *SQLite) ListByOwner(ctx context.Context, chatID, userID int64, limit int) ([]Timer, error) {
	return s.listTimers(ctx,
		`SELECT `+timerColumns+` FROM timers WHERE chat_id = ? AND user_id = ? ORDER BY respawn_at ASC LIMIT ?`,
		chatID, userID, normLimit(limit))
}

func (s *SQLite) ListAll(ctx context.Context) ([]Timer, error) {
	return s.listTimers(ctx,
		`SELECT `+timerColumns+` FROM timers ORDER BY respawn_at ASC`)
}

func (s *SQLite) listTimers(ctx context.Context, query string, args ...any) ([]Timer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Timer
	for rows.Next() {
		var t Timer
		var at int64
		var epoch int
		if err := rows.Scan(&t.ID, &t.ChatID, &t.UserID, &t.Boss, &at, &epoch); err != nil {
			return nil, err
		}
		t.RespawnAt = time.Unix(at, 0).UTC()
		t.Epoch = epoch != 0
		res = append(res, t)
	}
	return res, rows.Err()
}

func (s *SQLite) ListChats(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT chat_id FROM timers ORDER BY chat_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, rows.Err()
}

func (s *SQLite) DeleteAllInChat(ctx context.Context, chatID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM timers WHERE chat_id = ?`, chatID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---- UserStore ----

func (s *SQLite) UpsertUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users(id, username, first_name) VALUES(?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			username   = excluded.username,
			first_name = excluded.first_name`,
		u.ID, u.Username, u.FirstName,
	)
	return err
}

func (s *SQLite) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, first_name FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.FirstName)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// normLimit maps "no limit" to SQLite's -1 LIMIT convention.
func normLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
