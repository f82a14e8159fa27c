// Package registry manages the lifecycle of push subscription tokens
// and derives the per-dispatch recipient set.
package registry

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"pinefarm/internal/notify"
	"pinefarm/internal/store"
	"pinefarm/pkg/logx"
)

const RoleAdmin = "admin"

// Preference is the explicit per-identity opt-in record passed into
// registration and the interactive poller. It replaces the ambient
// enabled/permission flags the web client kept in local storage.
type Preference struct {
	Identity string
	Role     string
	// PermissionGranted mirrors the platform-level notification
	// permission of the identity's device.
	PermissionGranted bool
	// Enabled is the persisted per-identity opt-in switch.
	Enabled bool
	// Device identifies the browser/device context owning the token.
	Device string
}

// Eligible reports whether this identity may register tokens and drive
// the interactive poller.
func (p Preference) Eligible() bool {
	return strings.EqualFold(p.Role, RoleAdmin) && p.PermissionGranted && p.Enabled
}

var tokenIDRe = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// TokenID derives the stable record id from a token value.
func TokenID(token string) string {
	return tokenIDRe.ReplaceAllString(strings.TrimSpace(token), "_")
}

type Registry struct {
	store *store.Store
	log   logx.Logger
}

func New(st *store.Store, log logx.Logger) *Registry {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Registry{store: st, log: log}
}

// Register stores a fresh provider token for an identity. A missing
// precondition is a silent no-op, not an error: the caller simply is
// not a push recipient. A new token for the same device context
// supersedes whatever was stored there before.
func (r *Registry) Register(ctx context.Context, pref Preference, token string) error {
	token = strings.TrimSpace(token)
	if token == "" || !pref.Eligible() {
		r.log.Debug("token registration declined",
			logx.String("identity", pref.Identity),
			logx.Bool("eligible", pref.Eligible()))
		return nil
	}

	if pref.Device != "" {
		if err := r.store.DeleteDeviceTokens(ctx, pref.Identity, pref.Device); err != nil {
			return err
		}
	}
	return r.store.PutToken(ctx, store.TokenRecord{
		ID:        TokenID(token),
		Token:     token,
		UserID:    pref.Identity,
		Role:      strings.ToLower(pref.Role),
		Device:    pref.Device,
		Enabled:   true,
		UpdatedAt: time.Now(),
	})
}

// Invalidate removes a token the provider reported as dead.
func (r *Registry) Invalidate(ctx context.Context, token string) error {
	return r.store.DeleteToken(ctx, token)
}

// Cleanup removes a batch of invalid tokens discovered during fan-out.
// Best-effort: a failing delete is logged and the rest proceed.
func (r *Registry) Cleanup(ctx context.Context, tokens []string) int {
	removed := 0
	for _, t := range tokens {
		if err := r.store.DeleteToken(ctx, t); err != nil {
			r.log.Warn("invalid token cleanup failed", logx.Err(err))
			continue
		}
		removed++
	}
	return removed
}

// DisableAll drops every token owned by an identity (opt-out or
// sign-out).
func (r *Registry) DisableAll(ctx context.Context, identity string) error {
	return r.store.DeleteUserTokens(ctx, identity)
}

func (r *Registry) EnabledAdminTokens(ctx context.Context) ([]string, error) {
	return r.store.EnabledAdminTokens(ctx)
}

// Recipients derives the full recipient set for one tick: enabled admin
// tokens plus the configured email allowlist merged with admin
// identities' emails, lowercased and deduplicated.
func (r *Registry) Recipients(ctx context.Context, allowlist []string) (notify.Recipients, error) {
	tokens, err := r.store.EnabledAdminTokens(ctx)
	if err != nil {
		return notify.Recipients{}, err
	}
	adminEmails, err := r.store.AdminEmails(ctx)
	if err != nil {
		return notify.Recipients{}, err
	}

	seen := map[string]bool{}
	var emails []string
	for _, e := range append(append([]string(nil), allowlist...), adminEmails...) {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		emails = append(emails, e)
	}
	sort.Strings(emails)

	return notify.Recipients{Tokens: tokens, Emails: emails}, nil
}
