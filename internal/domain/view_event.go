package domain

import (
	"fmt"
	"time"
)

// ViewEvent records one counted view of an article by a viewer identity.
type ViewEvent struct {
	ID         string
	ArticleID  string
	Identifier string
	ViewedAt   time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the event is past its retention at now.
func (e ViewEvent) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// Window names a rolling counting window.
type Window string

const (
	Window24h Window = "24h"
	Window7d  Window = "7d"
)

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	switch w {
	case Window24h:
		return 24 * time.Hour
	case Window7d:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// ParseWindow validates a window name.
func ParseWindow(value string) (Window, error) {
	switch Window(value) {
	case Window24h:
		return Window24h, nil
	case Window7d:
		return Window7d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidWindow, value)
	}
}
