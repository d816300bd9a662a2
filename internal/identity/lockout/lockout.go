// Package lockout decides whether an account is locked because of its status or because of
// repeated failed logins.
package lockout

import (
	"context"
	"errors"

	userdomain "gym-tenancy/backend/internal/user/domain"
)

// Policy tracks failed logins and reports locked accounts. Locked is consulted before the
// password is compared.
type Policy interface {
	Locked(ctx context.Context, u *userdomain.User) (bool, error)
	RecordFailure(ctx context.Context, u *userdomain.User) error
	Reset(ctx context.Context, u *userdomain.User) error
}

// StatusPolicy locks accounts whose stored status is locked. It does not count failures.
type StatusPolicy struct{}

func (StatusPolicy) Locked(_ context.Context, u *userdomain.User) (bool, error) {
	return u.Status == userdomain.UserStatusLocked, nil
}

func (StatusPolicy) RecordFailure(context.Context, *userdomain.User) error { return nil }

func (StatusPolicy) Reset(context.Context, *userdomain.User) error { return nil }

// Chain combines policies: an account is locked if any policy says so, and failures and
// resets are recorded in all of them.
type Chain []Policy

func (c Chain) Locked(ctx context.Context, u *userdomain.User) (bool, error) {
	for _, p := range c {
		locked, err := p.Locked(ctx, u)
		if err != nil || locked {
			return locked, err
		}
	}
	return false, nil
}

func (c Chain) RecordFailure(ctx context.Context, u *userdomain.User) error {
	var errs []error
	for _, p := range c {
		errs = append(errs, p.RecordFailure(ctx, u))
	}
	return errors.Join(errs...)
}

func (c Chain) Reset(ctx context.Context, u *userdomain.User) error {
	var errs []error
	for _, p := range c {
		errs = append(errs, p.Reset(ctx, u))
	}
	return errors.Join(errs...)
}
