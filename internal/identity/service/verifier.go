package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gym-tenancy/backend/internal/audit"
	"gym-tenancy/backend/internal/identity/lockout"
	"gym-tenancy/backend/internal/platform/autherr"
	"gym-tenancy/backend/internal/platform/storecall"
	userdomain "gym-tenancy/backend/internal/user/domain"
)

// CredentialStore looks identities up by login email.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// PasswordHasher compares passwords with stored hashes.
type PasswordHasher interface {
	Compare(hash string, password []byte) error
	CompareDummy(password []byte)
}

// Verifier checks email and password against the credential store. It holds no state of its own.
type Verifier struct {
	users   CredentialStore
	hasher  PasswordHasher
	lockout lockout.Policy
	audit   audit.AuditLogger
	log     *zap.Logger
	timeout time.Duration
}

// NewVerifier returns a Verifier. policy, auditLogger and log may be nil.
func NewVerifier(users CredentialStore, hasher PasswordHasher, policy lockout.Policy, auditLogger audit.AuditLogger, log *zap.Logger, timeout time.Duration) *Verifier {
	if policy == nil {
		policy = lockout.StatusPolicy{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{users: users, hasher: hasher, lockout: policy, audit: auditLogger, log: log, timeout: timeout}
}

// Verify returns the identity for email when password matches.
//
// Unknown emails and wrong passwords both yield ErrInvalidCredentials, and an unknown email
// still costs one bcrypt comparison. A locked account yields ErrAccountLocked without the
// password being compared.
func (v *Verifier) Verify(ctx context.Context, email, password string) (*userdomain.User, error) {
	email = userdomain.NormalizeEmail(email)
	if email == "" || password == "" {
		v.hasher.CompareDummy([]byte(password))
		v.fail(ctx, "", "missing email or password")
		return nil, autherr.ErrInvalidCredentials
	}
	u, err := storecall.Do(ctx, v.timeout, func(ctx context.Context) (*userdomain.User, error) {
		return v.users.GetByEmail(ctx, email)
	})
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if u == nil {
		v.hasher.CompareDummy([]byte(password))
		v.fail(ctx, "", "unknown email")
		return nil, autherr.ErrInvalidCredentials
	}

	locked, err := storecall.Do(ctx, v.timeout, func(ctx context.Context) (bool, error) {
		return v.lockout.Locked(ctx, u)
	})
	if err != nil {
		return nil, autherr.Temporary(fmt.Errorf("lockout check: %w", err))
	}
	if locked {
		v.fail(ctx, u.ID, "account locked")
		return nil, autherr.ErrAccountLocked
	}

	if err := v.hasher.Compare(u.PasswordHash, []byte(password)); err != nil {
		rerr := storecall.Exec(ctx, v.timeout, func(ctx context.Context) error {
			return v.lockout.RecordFailure(ctx, u)
		})
		if rerr != nil {
			v.log.Warn("verifier: record failed login", zap.String("user_id", u.ID), zap.Error(rerr))
		}
		v.fail(ctx, u.ID, "password mismatch")
		return nil, autherr.ErrInvalidCredentials
	}
	if u.Status == userdomain.UserStatusDisabled {
		v.fail(ctx, u.ID, "account disabled")
		return nil, autherr.ErrInvalidCredentials
	}
	err = storecall.Exec(ctx, v.timeout, func(ctx context.Context) error {
		return v.lockout.Reset(ctx, u)
	})
	if err != nil {
		v.log.Warn("verifier: reset failed logins", zap.String("user_id", u.ID), zap.Error(err))
	}
	return u, nil
}

func (v *Verifier) fail(ctx context.Context, userID, reason string) {
	loginCounter.WithLabelValues("failure").Inc()
	if v.audit != nil {
		v.audit.LogEvent(ctx, "", userID, audit.ActionLoginFailure, audit.ResourceAuthentication, reason)
	}
}
