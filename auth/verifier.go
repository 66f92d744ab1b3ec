package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/LyDawei/Rate-my-services/admins"
)

// Verifier performs credential verification with uniform timing whether or
// not the username exists. Every call runs exactly one bcrypt comparison:
// against the account's hash when the account is found, against a fixed
// dummy digest of identical cost when it is not. Username enumeration by
// timing gets nothing to measure.
type Verifier struct {
	accounts    admins.Repo
	dummyDigest []byte
}

// NewVerifier creates a Verifier. dummyDigest may be a pinned bcrypt digest
// from configuration; when empty or malformed a fresh one is generated at
// cost, which must match the cost accounts are hashed at or the two code
// paths diverge in wall-clock time.
func NewVerifier(accounts admins.Repo, dummyDigest string, cost int) (*Verifier, error) {
	if accounts == nil {
		return nil, errors.New("[NewVerifier] accounts repo is required")
	}

	digest := []byte(dummyDigest)
	if _, err := bcrypt.Cost(digest); err != nil {
		generated, err := bcrypt.GenerateFromPassword([]byte(uuid.New().String()), cost)
		if err != nil {
			return nil, errors.Wrap(err, "[NewVerifier] generate dummy digest")
		}
		digest = generated
	}

	return &Verifier{
		accounts:    accounts,
		dummyDigest: digest,
	}, nil
}

// Verify checks username/password. valid is true only when the account
// exists and the password matches its hash; every other combination returns
// (false, nil) so the caller cannot distinguish no-such-user from
// wrong-password from the return value either.
func (v *Verifier) Verify(ctx context.Context, username, password string) (bool, *admins.Account, error) {
	account, err := v.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, admins.ErrNotFound) {
			// Burn the same bcrypt cost the real comparison would.
			_ = bcrypt.CompareHashAndPassword(v.dummyDigest, []byte(password))
			return false, nil, nil
		}
		return false, nil, errors.Wrap(err, "[Verifier.Verify] get account")
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return false, nil, nil
	}
	return true, account, nil
}
