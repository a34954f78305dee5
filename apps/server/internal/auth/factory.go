package auth

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// NewServiceFromEnv picks the auth backend from AUTH_MODE:
// "memory" (default), "sqlite", or "postgres"/"db". The Telegram bot
// token comes from BOT_TOKEN; leaving it unset disables telegram login.
func NewServiceFromEnv() (Service, error) {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_MODE")))
	botToken := strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	if botToken == "" {
		log.Printf("[Auth] BOT_TOKEN not set, telegram login disabled")
	}

	switch mode {
	case "", "memory":
		log.Printf("[Auth] using in-memory account store")
		return NewManager(botToken), nil
	case "sqlite", "local":
		svc, err := NewSQLiteManagerFromEnv(botToken)
		if err != nil {
			return nil, fmt.Errorf("sqlite auth: %w", err)
		}
		log.Printf("[Auth] using sqlite account store")
		return svc, nil
	case "postgres", "db":
		svc, err := NewPostgresManagerFromEnv(botToken)
		if err != nil {
			return nil, fmt.Errorf("postgres auth: %w", err)
		}
		log.Printf("[Auth] using postgres account store")
		return svc, nil
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", mode)
	}
}
