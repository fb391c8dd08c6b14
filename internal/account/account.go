// Package account is the thin boundary spec §1 calls out as an external
// collaborator for "account storage and password hashing" — but the
// account *rules* (username/password/email validation, verification
// token lifecycle, ELO leaderboard paging) are fully in scope and live
// here, composing internal/storage for persistence and
// github.com/lixenwraith/auth for the hashing itself.
package account

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"

	"github.com/lixenwraith/auth"

	"github.com/kasupel/server/internal/core"
	"github.com/kasupel/server/internal/storage"
)

// User is a registered account, as stored. Re-exported from
// internal/storage rather than duplicated so that a Store backed by the
// real database and one swapped in for tests speak the same type.
type User = storage.UserRecord

// Store is the persistence boundary, backed by internal/storage.
type Store interface {
	CreateUser(username, passwordHash, email, verificationToken string) (int64, error)
	UserByID(id int64) (*User, error)
	UserByUsername(username string) (*User, error)
	SetPasswordHash(userID int64, hash string) error
	SetEmail(userID int64, email string) error
	SetAvatarBlobID(userID int64, blobID string) error
	SetVerificationToken(userID int64, token string) error
	VerifyEmail(username, token string) error
	SetElo(userID int64, elo int) error
	DeleteUser(userID int64) error
	Leaderboard(page, pageSize int) ([]User, int, error)
}

// PwnedChecker looks a password up against haveibeenpwned, an external
// collaborator per spec §1. A nil checker skips the check, which test
// wiring relies on.
type PwnedChecker interface {
	IsPwned(password string) (bool, error)
}

var usernamePattern = regexp.MustCompile(`^[[:print:]]{1,32}$`)

// ValidateUsername enforces spec §3: 1-32 printable characters.
func ValidateUsername(username string) error {
	if len(username) == 0 {
		return core.NewError(core.CodeUsernameInvalid, "username must not be empty")
	}
	if len([]rune(username)) > 32 {
		return core.NewError(core.CodeUsernameTooLong, "username must be at most 32 characters")
	}
	if !usernamePattern.MatchString(username) {
		return core.NewError(core.CodeUsernameInvalid, "username must be printable characters")
	}
	return nil
}

// ValidatePassword enforces spec §6: 10-32 characters with at least 6
// unique characters, checked against HIBP when a checker is supplied.
func ValidatePassword(password string, pwned PwnedChecker) error {
	if len(password) < 10 {
		return core.NewError(core.CodePasswordTooShort, "password must be at least 10 characters")
	}
	if len(password) > 32 {
		return core.NewError(core.CodePasswordTooLong, "password must be at most 32 characters")
	}
	unique := make(map[rune]bool)
	for _, r := range password {
		unique[r] = true
	}
	if len(unique) < 6 {
		return core.NewError(core.CodePasswordTooWeak, "password must contain at least 6 unique characters")
	}
	if pwned != nil {
		found, err := pwned.IsPwned(password)
		if err != nil {
			return err
		}
		if found {
			return core.NewError(core.CodePasswordPwned, "password has appeared in a known breach")
		}
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return core.NewError(core.CodeEmailInvalid, "malformed email address")
	}
	return nil
}

// Accounts composes validation, password hashing, and storage into the
// operations spec §6's accounts endpoints need.
type Accounts struct {
	store Store
	pwned PwnedChecker
}

func New(store Store, pwned PwnedChecker) *Accounts {
	return &Accounts{store: store, pwned: pwned}
}

// newVerificationToken returns a 6-character single-use token per spec
// §3, drawn from an alphabet that is unambiguous when read aloud/typed
// from an email.
func newVerificationToken() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	token := make([]byte, 6)
	for i := range token {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		token[i] = alphabet[n.Int64()]
	}
	return string(token), nil
}

// Create implements POST /accounts/create.
func (a *Accounts) Create(username, password, email string) (int64, error) {
	if err := ValidateUsername(username); err != nil {
		return 0, err
	}
	if err := ValidatePassword(password, a.pwned); err != nil {
		return 0, err
	}
	if err := ValidateEmail(email); err != nil {
		return 0, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	token, err := newVerificationToken()
	if err != nil {
		return 0, err
	}
	return a.store.CreateUser(username, hash, email, token)
}

// Authenticate implements the credential check behind POST
// /accounts/login. It always runs a hash comparison, even against a
// placeholder, on a not-found username, so a timing side-channel cannot
// distinguish missing accounts from wrong passwords.
func (a *Accounts) Authenticate(username, password string) (*User, error) {
	u, err := a.store.UserByUsername(username)
	if err != nil {
		auth.VerifyPassword(password, "$argon2id$v=19$m=65536,t=1,p=4$placeholdersaltplaceholder$placeholder")
		return nil, core.NewError(core.CodeBadCredentials, "invalid username or password")
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return nil, core.NewError(core.CodeBadCredentials, "invalid username or password")
	}
	return u, nil
}

func (a *Accounts) ByID(id int64) (*User, error) { return a.store.UserByID(id) }

func (a *Accounts) ByUsername(username string) (*User, error) { return a.store.UserByUsername(username) }

// ResendVerificationEmail rotates the verification token; the actual
// delivery is an out-of-scope external collaborator per spec §1.
func (a *Accounts) ResendVerificationEmail(userID int64) (string, error) {
	token, err := newVerificationToken()
	if err != nil {
		return "", err
	}
	return token, a.store.SetVerificationToken(userID, token)
}

func (a *Accounts) VerifyEmail(username, token string) error {
	return a.store.VerifyEmail(username, token)
}

// UpdatePassword implements the password field of PATCH /accounts/me.
func (a *Accounts) UpdatePassword(userID int64, password string) error {
	if err := ValidatePassword(password, a.pwned); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return a.store.SetPasswordHash(userID, hash)
}

func (a *Accounts) UpdateEmail(userID int64, email string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return a.store.SetEmail(userID, email)
}

func (a *Accounts) UpdateAvatar(userID int64, blobID string) error {
	return a.store.SetAvatarBlobID(userID, blobID)
}

func (a *Accounts) Delete(userID int64) error { return a.store.DeleteUser(userID) }

// ApplyEloDelta persists the end-of-game ELO settlement the engine
// computed; the engine itself never writes to storage (see
// internal/engine's EloChange doc comment).
func (a *Accounts) ApplyEloDelta(userID int64, newElo int) error {
	return a.store.SetElo(userID, newElo)
}

// Leaderboard implements GET /accounts/accounts, sorted by ELO desc.
func (a *Accounts) Leaderboard(page int) ([]User, int, error) {
	const pageSize = 100
	return a.store.Leaderboard(page, pageSize)
}

// ResolveUser implements core.UserResolver.
func (a *Accounts) ResolveUser(id int64) (core.PublicUser, error) {
	u, err := a.store.UserByID(id)
	if err != nil {
		return core.PublicUser{}, err
	}
	return core.PublicUser{ID: u.ID, Username: u.Username, Elo: u.Elo}, nil
}
