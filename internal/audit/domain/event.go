package domain

import "time"

// AuthEvent is one security-relevant action taken against the auth core.
type AuthEvent struct {
	ID        string
	OwnerID   string
	Action    string // e.g. "login", "logout_all", "refresh"
	IP        string
	Metadata  string
	CreatedAt time.Time
}
