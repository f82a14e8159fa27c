package store

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("store closed")

type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Task statuses. A completed task never generates reminders.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Task is a scheduled activity. The dispatch engine only ever reads
// tasks; mutation belongs to the surrounding CRUD layer.
type Task struct {
	ID          string
	LandID      string
	ExpenseType string
	Category    string
	NextDate    string // calendar date, YYYY-MM-DD
	TaskTime    string // HH:MM, 24h; malformed values fall back downstream
	Status      string
	Notes       string
}

type Land struct {
	ID     string
	LandID string
	Name   string
}

type User struct {
	ID          string
	Email       string
	Role        string
	DisplayName string
}

// TokenRecord is one push-capable recipient endpoint. ID is the
// sanitized token value; Device identifies the browser/device context
// so re-registration can supersede the previous token.
type TokenRecord struct {
	ID        string
	Token     string
	UserID    string
	Role      string
	Device    string
	Enabled   bool
	UpdatedAt time.Time
}

// DispatchEntry is the idempotency record for one (task, schedule,
// offset) triple. Key presence is the sole gate against re-sending.
type DispatchEntry struct {
	Key         string
	TaskID      string
	TaskDate    string
	TaskTime    string
	DaysBefore  int
	SentAt      time.Time
	Timezone    string
	PushSuccess int
	PushFailure int
	EmailSent   bool
	AdminURL    string
}
