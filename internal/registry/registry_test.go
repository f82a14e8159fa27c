package registry

import (
	"context"
	"path/filepath"
	"testing"

	"pinefarm/internal/store"
	"pinefarm/pkg/logx"
)

func newTestRegistry(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	st, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "farm.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return New(st, logx.Nop()), st
}

func adminPref(id, device string) Preference {
	return Preference{Identity: id, Role: "admin", PermissionGranted: true, Enabled: true, Device: device}
}

func TestTokenID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "abc123", want: "abc123"},
		{raw: "a:b/c+d=e", want: "a_b_c_d_e"},
		{raw: "keep-these_chars", want: "keep-these_chars"},
		{raw: " spaced ", want: "spaced"},
	}
	for _, tt := range tests {
		if got := TokenID(tt.raw); got != tt.want {
			t.Fatalf("TokenID(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestPreferenceEligible(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		pref Preference
		want bool
	}{
		{name: "admin opted in", pref: adminPref("u1", "d1"), want: true},
		{name: "viewer", pref: Preference{Identity: "u1", Role: "viewer", PermissionGranted: true, Enabled: true}, want: false},
		{name: "no permission", pref: Preference{Identity: "u1", Role: "admin", Enabled: true}, want: false},
		{name: "opted out", pref: Preference{Identity: "u1", Role: "admin", PermissionGranted: true}, want: false},
		{name: "case insensitive role", pref: Preference{Identity: "u1", Role: "Admin", PermissionGranted: true, Enabled: true}, want: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pref.Eligible(); got != tt.want {
				t.Fatalf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegisterIneligibleIsNoop(t *testing.T) {
	t.Parallel()
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	prefs := []Preference{
		{Identity: "u1", Role: "viewer", PermissionGranted: true, Enabled: true},
		{Identity: "u1", Role: "admin", PermissionGranted: false, Enabled: true},
		{Identity: "u1", Role: "admin", PermissionGranted: true, Enabled: false},
	}
	for _, p := range prefs {
		if err := reg.Register(ctx, p, "tok-1"); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	if err := reg.Register(ctx, adminPref("u1", "d1"), "  "); err != nil {
		t.Fatalf("Register empty token: %v", err)
	}

	toks, err := reg.EnabledAdminTokens(ctx)
	if err != nil {
		t.Fatalf("EnabledAdminTokens: %v", err)
	}
	if len(toks) != 0 {
		t.Fatalf("expected no tokens registered, got %v", toks)
	}
}

func TestRegisterSupersedesDeviceToken(t *testing.T) {
	t.Parallel()
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	if err := reg.Register(ctx, adminPref("u1", "d1"), "tok-old"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(ctx, adminPref("u1", "d1"), "tok-new"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// A second device keeps its own token.
	if err := reg.Register(ctx, adminPref("u1", "d2"), "tok-other"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	toks, err := reg.EnabledAdminTokens(ctx)
	if err != nil {
		t.Fatalf("EnabledAdminTokens: %v", err)
	}
	got := map[string]bool{}
	for _, tok := range toks {
		got[tok] = true
	}
	if len(got) != 2 || !got["tok-new"] || !got["tok-other"] {
		t.Fatalf("tokens = %v, want tok-new and tok-other only", toks)
	}
}

func TestInvalidateAndDisableAll(t *testing.T) {
	t.Parallel()
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	_ = reg.Register(ctx, adminPref("u1", "d1"), "tok-1")
	_ = reg.Register(ctx, adminPref("u1", "d2"), "tok-2")
	_ = reg.Register(ctx, adminPref("u2", "d1"), "tok-3")

	if err := reg.Invalidate(ctx, "tok-1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if n := reg.Cleanup(ctx, []string{"tok-2", "tok-missing"}); n != 2 {
		// Deleting an absent token is not an error; both count as removed.
		t.Fatalf("Cleanup removed = %d, want 2", n)
	}
	if err := reg.DisableAll(ctx, "u2"); err != nil {
		t.Fatalf("DisableAll: %v", err)
	}

	toks, _ := reg.EnabledAdminTokens(ctx)
	if len(toks) != 0 {
		t.Fatalf("tokens = %v, want empty", toks)
	}
}

func TestRecipients(t *testing.T) {
	t.Parallel()
	reg, st := newTestRegistry(t)
	ctx := context.Background()

	_ = reg.Register(ctx, adminPref("u1", "d1"), "tok-1")
	if err := st.PutUser(ctx, store.User{ID: "u1", Email: "Boss@Farm.example", Role: "admin"}); err != nil {
		t.Fatalf("PutUser: %v", err)
	}

	rcpt, err := reg.Recipients(ctx, []string{"OPS@farm.example", "boss@farm.example", ""})
	if err != nil {
		t.Fatalf("Recipients: %v", err)
	}
	if len(rcpt.Tokens) != 1 || rcpt.Tokens[0] != "tok-1" {
		t.Fatalf("Tokens = %v, want [tok-1]", rcpt.Tokens)
	}
	if len(rcpt.Emails) != 2 || rcpt.Emails[0] != "boss@farm.example" || rcpt.Emails[1] != "ops@farm.example" {
		t.Fatalf("Emails = %v, want deduped lowercase pair", rcpt.Emails)
	}
}
