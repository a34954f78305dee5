package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"golang.org/x/crypto/bcrypt"
)

const defaultLocalDBName = "squirrel_local.db"

type SQLiteManager struct {
	db         *sql.DB
	botToken   string
	sessionTTL time.Duration
}

func NewSQLiteManagerFromEnv(botToken string) (*SQLiteManager, error) {
	dbPath, err := authLocalDatabasePathFromEnv()
	if err != nil {
		return nil, err
	}
	return NewSQLiteManager(dbPath, botToken, authSessionTTLFromEnv())
}

func NewSQLiteManager(dbPath, botToken string, sessionTTL time.Duration) (*SQLiteManager, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteAuthSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteManager{
		db:         db,
		botToken:   botToken,
		sessionTTL: sessionTTL,
	}, nil
}

func (m *SQLiteManager) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (m *SQLiteManager) Register(username, password string) (string, error) {
	if err := validateUsername(username); err != nil {
		return "", err
	}
	if err := validatePassword(password); err != nil {
		return "", err
	}

	normalized := normalizeUsername(username)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	nowMs := time.Now().UTC().UnixMilli()
	if _, err := tx.ExecContext(ctx, `
INSERT INTO users (username, password_hash, created_at_ms, updated_at_ms, last_login_at_ms)
VALUES (?, ?, ?, ?, ?)
`, normalized, string(passwordHash), nowMs, nowMs, nowMs); err != nil {
		if isSQLiteUniqueViolation(err) {
			return "", ErrUsernameTaken
		}
		return "", err
	}

	token, err := m.issueSessionTx(ctx, tx, normalized, nowMs)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return token, nil
}

func (m *SQLiteManager) Login(username, password string) (string, error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var passwordHash sql.NullString
	err := m.db.QueryRowContext(ctx, `
SELECT password_hash FROM users WHERE username = ?
`, normalized).Scan(&passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !passwordHash.Valid || passwordHash.String == "" {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash.String), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	return m.touchAndIssue(ctx, normalized)
}

// LoginTelegram verifies the signed payload and upserts the user by
// telegram id, keeping the stored handle fresh.
func (m *SQLiteManager) LoginTelegram(initData string) (string, error) {
	if m.botToken == "" {
		return "", ErrTelegramDisabled
	}
	user, err := VerifyLoginPayload(initData, m.botToken)
	if err != nil {
		return "", err
	}
	username := normalizeUsername(user.DisplayName())
	if username == "" {
		return "", ErrInvalidUsername
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	nowMs := time.Now().UTC().UnixMilli()
	var stored string
	err = m.db.QueryRowContext(ctx, `
INSERT INTO users (username, telegram_id, created_at_ms, updated_at_ms, last_login_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(telegram_id) WHERE telegram_id IS NOT NULL DO UPDATE SET
    username = excluded.username,
    updated_at_ms = excluded.updated_at_ms,
    last_login_at_ms = excluded.last_login_at_ms
RETURNING username
`, username, user.ID, nowMs, nowMs, nowMs).Scan(&stored)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return "", ErrUsernameTaken
		}
		return "", err
	}

	return m.touchAndIssue(ctx, stored)
}

func (m *SQLiteManager) touchAndIssue(ctx context.Context, uid string) (string, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	nowMs := time.Now().UTC().UnixMilli()
	if _, err := tx.ExecContext(ctx, `
UPDATE users SET last_login_at_ms = ?, updated_at_ms = ? WHERE username = ?
`, nowMs, nowMs, uid); err != nil {
		return "", err
	}

	token, err := m.issueSessionTx(ctx, tx, uid, nowMs)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return token, nil
}

func (m *SQLiteManager) ResolveToken(token string) (uid, username string, ok bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "", false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	nowMs := time.Now().UTC().UnixMilli()
	expiresAtMs := nowMs + m.sessionTTL.Milliseconds()

	res, err := m.db.ExecContext(ctx, `
UPDATE auth_sessions
SET last_seen_at_ms = ?, expires_at_ms = ?
WHERE token = ? AND expires_at_ms > ?
`, nowMs, expiresAtMs, token, nowMs)
	if err != nil {
		return "", "", false
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil || rowsAffected == 0 {
		return "", "", false
	}

	err = m.db.QueryRowContext(ctx, `
SELECT username FROM auth_sessions WHERE token = ?
`, token).Scan(&uid)
	if err != nil {
		return "", "", false
	}
	return uid, uid, true
}

func (m *SQLiteManager) issueSessionTx(ctx context.Context, tx *sql.Tx, uid string, nowMs int64) (string, error) {
	expiresAtMs := nowMs + m.sessionTTL.Milliseconds()
	for i := 0; i < 5; i++ {
		token := mustToken()
		if _, err := tx.ExecContext(ctx, `
INSERT INTO auth_sessions (token, username, issued_at_ms, expires_at_ms, last_seen_at_ms)
VALUES (?, ?, ?, ?, ?)
`, token, uid, nowMs, expiresAtMs, nowMs); err != nil {
			if isSQLiteUniqueViolation(err) {
				continue
			}
			return "", err
		}
		return token, nil
	}
	return "", fmt.Errorf("failed to generate unique session token")
}

func ensureSQLiteAuthSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL,
    telegram_id INTEGER,
    password_hash TEXT,
    created_at_ms INTEGER NOT NULL,
    updated_at_ms INTEGER NOT NULL,
    last_login_at_ms INTEGER
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_username_ci ON users(lower(username))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_telegram ON users(telegram_id) WHERE telegram_id IS NOT NULL`,
		`
CREATE TABLE IF NOT EXISTS auth_sessions (
    token TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    issued_at_ms INTEGER NOT NULL,
    expires_at_ms INTEGER NOT NULL,
    last_seen_at_ms INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_auth_sessions_user ON auth_sessions(username, expires_at_ms DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func authLocalDatabasePathFromEnv() (string, error) {
	candidates := []string{
		strings.TrimSpace(os.Getenv("AUTH_LOCAL_DATABASE_PATH")),
		strings.TrimSpace(os.Getenv("LOCAL_DATABASE_PATH")),
	}
	for _, candidate := range candidates {
		if candidate != "" {
			return filepath.Clean(candidate), nil
		}
	}

	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userConfigDir, "Squirrel", defaultLocalDBName), nil
}

func isSQLiteUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
