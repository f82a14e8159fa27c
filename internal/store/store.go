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

	_ "modernc.org/sqlite"

	"pinefarm/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Store is the sqlite-backed persistence layer shared by both trigger
// contexts: task/land/user reads, the push token registry, and the
// dispatch idempotency log.
type Store struct {
	db  *sql.DB
	log logx.Logger
}

func Open(cfg Config, log logx.Logger) (*Store, error) {
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
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &Store{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- tasks ----

func (s *Store) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, land_id, expense_type, category, next_date, task_time, status, notes FROM tasks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.LandID, &t.ExpenseType, &t.Category, &t.NextDate, &t.TaskTime, &t.Status, &t.Notes); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) PutTask(ctx context.Context, t Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(id, land_id, expense_type, category, next_date, task_time, status, notes)
		 VALUES(?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   land_id=excluded.land_id, expense_type=excluded.expense_type,
		   category=excluded.category, next_date=excluded.next_date,
		   task_time=excluded.task_time, status=excluded.status, notes=excluded.notes`,
		t.ID, t.LandID, t.ExpenseType, t.Category, t.NextDate, t.TaskTime, t.Status, t.Notes)
	return err
}

func (s *Store) SetTaskStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tasks SET status=? WHERE id=?`, status, id)
	return err
}

// ---- lands ----

func (s *Store) PutLand(ctx context.Context, l Land) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lands(id, land_id, land_name) VALUES(?,?,?)
		 ON CONFLICT(id) DO UPDATE SET land_id=excluded.land_id, land_name=excluded.land_name`,
		l.ID, l.LandID, l.Name)
	return err
}

// LandNames maps every known land key (row id and legacy land_id) to
// its display name.
func (s *Store) LandNames(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, land_id, land_name FROM lands`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := map[string]string{}
	for rows.Next() {
		var id, landID, name string
		if err := rows.Scan(&id, &landID, &name); err != nil {
			return nil, err
		}
		if strings.TrimSpace(name) == "" {
			name = "Unknown"
		}
		for _, key := range []string{id, landID} {
			if k := strings.TrimSpace(key); k != "" {
				names[k] = name
			}
		}
	}
	return names, rows.Err()
}

// ---- users ----

func (s *Store) PutUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(id, email, role, display_name) VALUES(?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET email=excluded.email, role=excluded.role, display_name=excluded.display_name`,
		u.ID, u.Email, u.Role, u.DisplayName)
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (User, bool, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, role, display_name FROM users WHERE id=?`, id).
		Scan(&u.ID, &u.Email, &u.Role, &u.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	return u, true, nil
}

func (s *Store) AdminEmails(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT email FROM users WHERE role='admin' AND email <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out = append(out, strings.ToLower(strings.TrimSpace(e)))
	}
	return out, rows.Err()
}

// ---- push tokens ----

func (s *Store) PutToken(ctx context.Context, r TokenRecord) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_tokens(id, token, user_id, role, device, enabled, updated_at)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   token=excluded.token, user_id=excluded.user_id, role=excluded.role,
		   device=excluded.device, enabled=excluded.enabled, updated_at=excluded.updated_at`,
		r.ID, r.Token, r.UserID, r.Role, r.Device, boolInt(r.Enabled), r.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) DeleteToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_tokens WHERE token=?`, token)
	return err
}

func (s *Store) DeleteDeviceTokens(ctx context.Context, userID, device string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_tokens WHERE user_id=? AND device=?`, userID, device)
	return err
}

func (s *Store) DeleteUserTokens(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_tokens WHERE user_id=?`, userID)
	return err
}

// EnabledAdminTokens returns tokens eligible for push fan-out. Rows with
// an empty role predate role snapshots and are kept for compatibility.
func (s *Store) EnabledAdminTokens(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT token FROM push_tokens WHERE enabled=1 AND (role='' OR role='admin')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		if t != "" {
			out = append(out, t)
		}
	}
	return out, rows.Err()
}

// ---- dispatch log ----

func (s *Store) SeenDispatch(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM dispatch_log WHERE key=?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecordDispatch inserts the idempotency record. A concurrent tick may
// have written the same key first; that is not an error (the payload is
// identical), so the insert is a no-op and inserted=false.
func (s *Store) RecordDispatch(ctx context.Context, e DispatchEntry) (bool, error) {
	if e.SentAt.IsZero() {
		e.SentAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO dispatch_log(key, task_id, task_date, task_time, days_before, sent_at, timezone, push_success, push_failure, email_sent, admin_url)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(key) DO NOTHING`,
		e.Key, e.TaskID, e.TaskDate, e.TaskTime, e.DaysBefore,
		e.SentAt.UTC().Format(time.RFC3339), e.Timezone,
		e.PushSuccess, e.PushFailure, boolInt(e.EmailSent), e.AdminURL)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) GetDispatch(ctx context.Context, key string) (DispatchEntry, bool, error) {
	var (
		e       DispatchEntry
		sentAt  string
		emailed int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, task_id, task_date, task_time, days_before, sent_at, timezone, push_success, push_failure, email_sent, admin_url
		 FROM dispatch_log WHERE key=?`, key).
		Scan(&e.Key, &e.TaskID, &e.TaskDate, &e.TaskTime, &e.DaysBefore, &sentAt, &e.Timezone, &e.PushSuccess, &e.PushFailure, &emailed, &e.AdminURL)
	if errors.Is(err, sql.ErrNoRows) {
		return DispatchEntry{}, false, nil
	}
	if err != nil {
		return DispatchEntry{}, false, err
	}
	e.SentAt, _ = time.Parse(time.RFC3339, sentAt)
	e.EmailSent = emailed != 0
	return e, true, nil
}

// PruneDispatchLog removes entries sent before cutoff whose task due
// date is also behind todayKey. Entries for still-future schedules are
// never removed regardless of age.
func (s *Store) PruneDispatchLog(ctx context.Context, cutoff time.Time, todayKey string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dispatch_log WHERE sent_at < ? AND task_date < ?`,
		cutoff.UTC().Format(time.RFC3339), todayKey)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
