package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Reminder ReminderConfig `json:"reminder"`

	// Channel transports. Each block is optional; an absent or
	// incomplete block means "channel disabled", not an error.
	Push     *PushConfig     `json:"push,omitempty"`
	Email    *EmailConfig    `json:"email,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type StorageConfig struct {
	Path string `json:"path"`
	// BusyTimeout is a Go duration string (sqlite busy_timeout pragma).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// ReminderConfig controls the dispatch engine itself.
//
// Defaults (when fields are omitted/zero):
//   - timezone: "Asia/Colombo"
//   - utc_offset: "+05:30"
//   - offsets: [3, 2, 1, 0] (days before due; 0 = due day)
//   - default_time: "09:00"
//   - retention_days: 45
//   - poll_interval: "60s"
//   - batch_schedule: "*/15 * * * *"
type ReminderConfig struct {
	Timezone      string `json:"timezone,omitempty"`
	UTCOffset     string `json:"utc_offset,omitempty"`
	Offsets       []int  `json:"offsets,omitempty"`
	DefaultTime   string `json:"default_time,omitempty"`
	RetentionDays int    `json:"retention_days,omitempty"`

	// PollInterval is a Go duration string for the interactive poller.
	PollInterval  string `json:"poll_interval,omitempty"`
	BatchSchedule string `json:"batch_schedule,omitempty"`

	// TargetURL is the click-through link embedded in notifications.
	TargetURL string `json:"target_url,omitempty"`
	IconURL   string `json:"icon_url,omitempty"`

	// AdminEmails is merged with emails of admin identities from the
	// store when building the email recipient set.
	AdminEmails []string `json:"admin_emails,omitempty"`
}

type PushConfig struct {
	Enabled         bool   `json:"enabled"`
	ProjectID       string `json:"project_id"`
	CredentialsFile string `json:"credentials_file,omitempty"`
	RatePerSec      int    `json:"rate_per_sec,omitempty"`
}

type EmailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	From     string `json:"from"`
}

// Configured reports whether the mail transport is usable at all.
// Missing host or sender is the documented "channel disabled" state.
func (e *EmailConfig) Configured() bool {
	return e != nil && strings.TrimSpace(e.Host) != "" && strings.TrimSpace(e.From) != ""
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}

func (t *TelegramConfig) Configured() bool {
	return t != nil && strings.TrimSpace(t.Token) != "" && t.ChatID != 0
}

// Normalize fills defaults in place and validates the few fields that
// have no safe fallback.
func (c *Config) Normalize() error {
	r := &c.Reminder
	if strings.TrimSpace(r.Timezone) == "" {
		r.Timezone = "Asia/Colombo"
	}
	if strings.TrimSpace(r.UTCOffset) == "" {
		r.UTCOffset = "+05:30"
	}
	if len(r.Offsets) == 0 {
		r.Offsets = []int{3, 2, 1, 0}
	}
	for _, k := range r.Offsets {
		if k < 0 {
			return fmt.Errorf("reminder.offsets: negative offset %d", k)
		}
	}
	if strings.TrimSpace(r.DefaultTime) == "" {
		r.DefaultTime = "09:00"
	}
	if r.RetentionDays <= 0 {
		r.RetentionDays = 45
	}
	if strings.TrimSpace(r.PollInterval) == "" {
		r.PollInterval = "60s"
	}
	if strings.TrimSpace(r.BatchSchedule) == "" {
		r.BatchSchedule = "*/15 * * * *"
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage.path is required")
	}
	return nil
}
