package authkit

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/venlock/authkit/internal"
	"github.com/venlock/authkit/password"
	"github.com/venlock/authkit/session"
	"github.com/venlock/authkit/token"
)

// Manager orchestrates the credential lifecycle: signup, login, refresh
// (rotate-on-use), logout, and stateless access-token authentication.
// Construct one via [New]; a Manager is immutable and safe for concurrent use.
type Manager struct {
	config    Config
	codec     *token.Codec
	sessions  *session.Store
	passwords *password.Hasher
	accounts  AccountProvider
	audit     *auditDispatcher
	metrics   *Metrics
}

// Close flushes and stops the audit dispatcher.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	if m.audit != nil {
		m.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped under backpressure.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all metrics.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

func (m *Manager) metricInc(id MetricID) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Inc(id)
}

// Signup registers a new account and opens its first session. The email is
// trimmed and lowercased before the create; a uniqueness violation surfaces
// as [ErrDuplicateEmail]. On success the refresh token is already tracked in
// the session store.
func (m *Manager) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	if m.passwords == nil || m.accounts == nil {
		return nil, ErrManagerNotReady
	}

	email := normalizeEmail(req.Email)
	displayName := strings.TrimSpace(req.DisplayName)
	if email == "" || !strings.Contains(email, "@") || displayName == "" {
		m.emitAudit(ctx, auditEventSignupFailure, false, "", ErrSignupInvalid, func() map[string]string {
			return map[string]string{
				"reason": "invalid_input",
			}
		})
		return nil, ErrSignupInvalid
	}

	hash, err := m.passwords.Hash(req.Password)
	if err != nil {
		m.metricInc(MetricSignupFailure)
		m.emitAudit(ctx, auditEventSignupFailure, false, "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "password_policy",
			}
		})
		return nil, ErrPasswordPolicy
	}

	account, err := m.accounts.Create(ctx, CreateAccountInput{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			m.metricInc(MetricSignupDuplicate)
			m.emitAudit(ctx, auditEventSignupDuplicate, false, "", ErrDuplicateEmail, func() map[string]string {
				return map[string]string{
					"email": email,
				}
			})
			return nil, ErrDuplicateEmail
		}
		m.metricInc(MetricSignupFailure)
		m.emitAudit(ctx, auditEventSignupFailure, false, "", ErrInternal, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "provider_create_failed",
			}
		})
		return nil, ErrInternal
	}

	pair, err := m.openSession(ctx, account)
	if err != nil {
		m.metricInc(MetricSignupFailure)
		m.emitAudit(ctx, auditEventSignupFailure, false, account.ID, ErrInternal, func() map[string]string {
			return map[string]string{
				"reason": "session_open_failed",
			}
		})
		return nil, ErrInternal
	}

	m.metricInc(MetricSignupSuccess)
	m.emitAudit(ctx, auditEventSignupSuccess, true, account.ID, nil, nil)

	return &AuthResult{Account: account, TokenPair: pair}, nil
}

// Login authenticates an email/password pair and opens a new session. Prior
// sessions are untouched, so an account holds one tracked refresh token per
// device. Unknown email and wrong password produce the identical
// [ErrInvalidCredentials].
func (m *Manager) Login(ctx context.Context, email, plaintext string) (*AuthResult, error) {
	if m.passwords == nil || m.accounts == nil {
		return nil, ErrManagerNotReady
	}

	normalized := normalizeEmail(email)
	if plaintext == "" {
		m.metricInc(MetricLoginFailure)
		m.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"email":  normalized,
				"reason": "empty_password",
			}
		})
		return nil, ErrInvalidCredentials
	}

	account, err := m.accounts.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			m.metricInc(MetricLoginFailure)
			m.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, func() map[string]string {
				return map[string]string{
					"email":  normalized,
					"reason": "account_not_found",
				}
			})
			return nil, ErrInvalidCredentials
		}
		m.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInternal, func() map[string]string {
			return map[string]string{
				"email":  normalized,
				"reason": "provider_lookup_failed",
			}
		})
		return nil, ErrInternal
	}

	ok, err := m.passwords.Verify(plaintext, account.PasswordHash)
	if err != nil || !ok {
		m.metricInc(MetricLoginFailure)
		m.emitAudit(ctx, auditEventLoginFailure, false, account.ID, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"email":  normalized,
				"reason": "password_mismatch",
			}
		})
		return nil, ErrInvalidCredentials
	}

	pair, err := m.openSession(ctx, account)
	if err != nil {
		m.metricInc(MetricLoginFailure)
		m.emitAudit(ctx, auditEventLoginFailure, false, account.ID, ErrInternal, func() map[string]string {
			return map[string]string{
				"reason": "session_open_failed",
			}
		})
		return nil, ErrInternal
	}

	m.metricInc(MetricLoginSuccess)
	m.emitAudit(ctx, auditEventLoginSuccess, true, account.ID, nil, nil)

	return &AuthResult{Account: account, TokenPair: pair}, nil
}

// Refresh exchanges a valid tracked refresh token for a new credential pair.
// Verification happens before any store access; a token that fails signature
// or expiry checks never touches Redis. Rotation is exactly-once: the moment
// the atomic replace completes, the presented token is permanently spent even
// though its signature stays valid until natural expiry, so a replayed token
// fails the tracking check and reports the same [ErrRefreshInvalid] as every
// other refresh failure.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if m.accounts == nil {
		return nil, ErrManagerNotReady
	}

	claims, err := m.codec.Verify(token.KindRefresh, refreshToken)
	if err != nil {
		m.metricInc(MetricRefreshFailure)
		m.emitAudit(ctx, auditEventRefreshInvalid, false, "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "verify_failed",
			}
		})
		return nil, ErrRefreshInvalid
	}

	account, err := m.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			m.metricInc(MetricRefreshFailure)
			m.emitAudit(ctx, auditEventRefreshInvalid, false, claims.AccountID, ErrRefreshInvalid, func() map[string]string {
				return map[string]string{
					"reason": "account_not_found",
				}
			})
			return nil, ErrRefreshInvalid
		}
		m.emitAudit(ctx, auditEventRefreshInvalid, false, claims.AccountID, ErrInternal, func() map[string]string {
			return map[string]string{
				"reason": "provider_lookup_failed",
			}
		})
		return nil, ErrInternal
	}

	// Claims are rebuilt from the current account record, so an admin-flag
	// change propagates on the next refresh.
	access, next, err := m.codec.IssuePair(account.ID, account.Email, account.Admin)
	if err != nil {
		m.metricInc(MetricRefreshFailure)
		m.emitAudit(ctx, auditEventRefreshInvalid, false, account.ID, ErrInternal, func() map[string]string {
			return map[string]string{
				"reason": "issue_pair_failed",
			}
		})
		return nil, ErrInternal
	}

	expiresAt := time.Now().Add(m.codec.Lifetime(token.KindRefresh))
	err = m.sessions.Replace(ctx, account.ID, internal.HashToken(refreshToken), internal.HashToken(next), expiresAt)
	if err != nil {
		if errors.Is(err, session.ErrTokenNotTracked) {
			m.metricInc(MetricRefreshReuseDetected)
			m.metricInc(MetricRefreshFailure)
			m.emitAudit(ctx, auditEventRefreshReuseDetected, false, account.ID, ErrRefreshInvalid, nil)
			return nil, ErrRefreshInvalid
		}
		m.metricInc(MetricRefreshFailure)
		m.emitAudit(ctx, auditEventRefreshInvalid, false, account.ID, ErrInternal, func() map[string]string {
			return map[string]string{
				"reason": "replace_failed",
			}
		})
		return nil, ErrInternal
	}

	m.metricInc(MetricRefreshSuccess)
	m.emitAudit(ctx, auditEventRefreshSuccess, true, account.ID, nil, nil)

	return &TokenPair{AccessToken: access, RefreshToken: next}, nil
}

// Authenticate verifies an access token without touching the session store
// and returns the embedded identity. Revoking a session does not retract
// access tokens it already issued; they simply age out.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (Identity, error) {
	if m.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			m.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}()
	}

	claims, err := m.codec.Verify(token.KindAccess, accessToken)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrTokenInvalid
	}

	return Identity{
		AccountID: claims.AccountID,
		Email:     claims.Email,
		Admin:     claims.Admin,
	}, nil
}

// Logout revokes the session identified by the presented refresh token.
// Revoking an already-rotated or unknown token is a no-op, not an error.
func (m *Manager) Logout(ctx context.Context, refreshToken string) error {
	claims, err := m.codec.Verify(token.KindRefresh, refreshToken)
	if err != nil {
		m.emitAudit(ctx, auditEventLogoutSession, false, "", ErrRefreshInvalid, nil)
		return ErrRefreshInvalid
	}

	removed, err := m.sessions.Remove(ctx, claims.AccountID, internal.HashToken(refreshToken))
	if err != nil {
		log.Print("authkit: session remove failed during logout")
		m.emitAudit(ctx, auditEventLogoutSession, false, claims.AccountID, ErrInternal, nil)
		return ErrInternal
	}
	if removed {
		m.metricInc(MetricLogout)
		m.metricInc(MetricSessionInvalidated)
	}
	m.emitAudit(ctx, auditEventLogoutSession, true, claims.AccountID, nil, nil)

	return nil
}

// LogoutAll revokes every session of the account.
func (m *Manager) LogoutAll(ctx context.Context, accountID string) error {
	if err := m.sessions.RemoveAll(ctx, accountID); err != nil {
		log.Print("authkit: session purge failed during logout-all")
		m.emitAudit(ctx, auditEventLogoutAll, false, accountID, ErrInternal, nil)
		return ErrInternal
	}

	m.metricInc(MetricLogoutAll)
	m.metricInc(MetricSessionInvalidated)
	m.emitAudit(ctx, auditEventLogoutAll, true, accountID, nil, nil)

	return nil
}

// ActiveSessions reports how many unexpired sessions the account holds.
func (m *Manager) ActiveSessions(ctx context.Context, accountID string) (int, error) {
	count, err := m.sessions.ActiveCount(ctx, accountID)
	if err != nil {
		return 0, ErrInternal
	}
	return count, nil
}

func (m *Manager) openSession(ctx context.Context, account Account) (TokenPair, error) {
	access, refresh, err := m.codec.IssuePair(account.ID, account.Email, account.Admin)
	if err != nil {
		return TokenPair{}, err
	}

	expiresAt := time.Now().Add(m.codec.Lifetime(token.KindRefresh))
	if err := m.sessions.Append(ctx, account.ID, internal.HashToken(refresh), expiresAt); err != nil {
		log.Print("authkit: session append failed")
		return TokenPair{}, err
	}
	m.metricInc(MetricSessionCreated)

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
