package auth

import (
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Manager provides in-memory account/session management for
// single-binary deployment. It can be swapped for a persistent store
// without changing gateway contracts.
type Manager struct {
	mu sync.Mutex

	botToken   string
	sessionTTL time.Duration

	accounts   map[string]accountRecord // normalized username -> account
	byTelegram map[int64]string         // telegram id -> normalized username
	sessions   map[string]sessionRecord // token -> session
}

type accountRecord struct {
	Username      string
	PasswordHash  []byte
	TelegramID    int64
	LastLoginTime time.Time
}

type sessionRecord struct {
	UID       string
	ExpiresAt time.Time
}

func NewManager(botToken string) *Manager {
	return &Manager{
		botToken:   botToken,
		sessionTTL: defaultSessionTTL,
		accounts:   make(map[string]accountRecord),
		byTelegram: make(map[int64]string),
		sessions:   make(map[string]sessionRecord),
	}
}

func (m *Manager) Close() error { return nil }

func (m *Manager) issueSessionLocked(uid string, now time.Time) string {
	token := mustToken()
	m.sessions[token] = sessionRecord{
		UID:       uid,
		ExpiresAt: now.Add(m.sessionTTL),
	}
	return token
}

// Register creates a local password account and returns a bearer token.
func (m *Manager) Register(username, password string) (string, error) {
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

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[normalized]; exists {
		return "", ErrUsernameTaken
	}

	now := time.Now()
	m.accounts[normalized] = accountRecord{
		Username:      normalized,
		PasswordHash:  passwordHash,
		LastLoginTime: now,
	}
	return m.issueSessionLocked(normalized, now), nil
}

// Login validates local credentials and returns a fresh bearer token.
func (m *Manager) Login(username, password string) (string, error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	account, exists := m.accounts[normalized]
	if !exists || len(account.PasswordHash) == 0 {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	account.LastLoginTime = now
	m.accounts[normalized] = account
	return m.issueSessionLocked(normalized, now), nil
}

// LoginTelegram verifies a signed init_data payload, upserts the user
// by telegram id and returns a bearer token.
func (m *Manager) LoginTelegram(initData string) (string, error) {
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

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if prev, known := m.byTelegram[user.ID]; known {
		// Same external identity: refresh the stored handle.
		account := m.accounts[prev]
		if prev != username {
			if _, taken := m.accounts[username]; taken {
				return "", ErrUsernameTaken
			}
			delete(m.accounts, prev)
			account.Username = username
			m.byTelegram[user.ID] = username
		}
		account.LastLoginTime = now
		m.accounts[username] = account
		return m.issueSessionLocked(username, now), nil
	}

	if existing, taken := m.accounts[username]; taken && existing.TelegramID != user.ID {
		return "", ErrUsernameTaken
	}
	m.accounts[username] = accountRecord{
		Username:      username,
		TelegramID:    user.ID,
		LastLoginTime: now,
	}
	m.byTelegram[user.ID] = username
	return m.issueSessionLocked(username, now), nil
}

// ResolveToken validates and slides a bearer token.
func (m *Manager) ResolveToken(token string) (uid, username string, ok bool) {
	if token == "" {
		return "", "", false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.sessions[token]
	if !exists {
		return "", "", false
	}
	now := time.Now()
	if !now.Before(rec.ExpiresAt) {
		delete(m.sessions, token)
		return "", "", false
	}
	rec.ExpiresAt = now.Add(m.sessionTTL)
	m.sessions[token] = rec

	account := m.accounts[rec.UID]
	return rec.UID, account.Username, true
}
