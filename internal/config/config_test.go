package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAMLWithDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: debug
  console: true
storage:
  path: /tmp/farm.db
reminder:
  target_url: https://farm.example/admin
`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	r := cfg.Reminder
	if r.Timezone != "Asia/Colombo" || r.UTCOffset != "+05:30" || r.DefaultTime != "09:00" {
		t.Fatalf("reminder defaults = %+v", r)
	}
	if len(r.Offsets) != 4 || r.Offsets[0] != 3 || r.Offsets[3] != 0 {
		t.Fatalf("offsets = %v, want [3 2 1 0]", r.Offsets)
	}
	if r.RetentionDays != 45 || r.PollInterval != "60s" || r.BatchSchedule != "*/15 * * * *" {
		t.Fatalf("reminder defaults = %+v", r)
	}
	if cfg.Push != nil || cfg.Email != nil || cfg.Telegram != nil {
		t.Fatal("absent channel blocks should stay nil")
	}
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
  "storage": {"path": "/tmp/farm.db"},
  "reminder": {"offsets": [7, 0], "timezone": "UTC", "utc_offset": "+00:00"},
  "email": {"host": "smtp.farm.example", "from": "noreply@farm.example"}
}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Reminder.Offsets) != 2 || cfg.Reminder.Offsets[0] != 7 {
		t.Fatalf("offsets = %v", cfg.Reminder.Offsets)
	}
	if !cfg.Email.Configured() {
		t.Fatal("email block should be configured")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
storage:
  path: /tmp/farm.db
remnder:
  timezone: UTC
`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for misspelled section")
	}
}

func TestLoadRejectsMissingStoragePath(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", "logging:\n  level: info\n")
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for missing storage.path")
	}
}

func TestLoadRejectsNegativeOffset(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
storage:
  path: /tmp/farm.db
reminder:
  offsets: [3, -1]
`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for negative offset")
	}
}

func TestChannelConfigured(t *testing.T) {
	t.Parallel()
	var e *EmailConfig
	if e.Configured() {
		t.Fatal("nil email config must not be configured")
	}
	if (&EmailConfig{Host: "smtp.farm.example"}).Configured() {
		t.Fatal("email without sender must not be configured")
	}
	var tg *TelegramConfig
	if tg.Configured() {
		t.Fatal("nil telegram config must not be configured")
	}
	if !(&TelegramConfig{Token: "x", ChatID: -100}).Configured() {
		t.Fatal("telegram with token and chat must be configured")
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("reminder.poll_interval", "", 60_000_000_000)
	if err != nil || d != 60_000_000_000 {
		t.Fatalf("default = (%v, %v)", d, err)
	}
	d, err = ParseDurationOrDefault("reminder.poll_interval", "90s", 0)
	if err != nil || d.Seconds() != 90 {
		t.Fatalf("parsed = (%v, %v)", d, err)
	}
	if _, err := ParseDurationOrDefault("reminder.poll_interval", "soon", 0); err == nil {
		t.Fatal("expected error for bad duration")
	}
}
