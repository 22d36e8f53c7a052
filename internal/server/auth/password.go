package auth

import (
	"context"
	"fmt"
	"regexp"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordBytes = 72
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// PasswordVerdict is the result of ValidatePassword. Reason names the first
// rule the candidate broke and is empty when Valid is true.
type PasswordVerdict struct {
	Valid  bool
	Reason string
}

// ValidateEmail reports whether candidate looks like local@domain.tld.
func ValidateEmail(candidate string) bool {
	return emailPattern.MatchString(candidate)
}

// ValidatePassword checks length and composition rules.
func ValidatePassword(candidate string) PasswordVerdict {
	if len([]rune(candidate)) < MinPasswordLength {
		return PasswordVerdict{Reason: fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength)}
	}
	if len(candidate) > MaxPasswordBytes {
		return PasswordVerdict{Reason: fmt.Sprintf("Password must be at most %d bytes long", MaxPasswordBytes)}
	}

	var letter, digit bool
	for _, r := range candidate {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter {
		return PasswordVerdict{Reason: "Password must contain at least one letter"}
	}
	if !digit {
		return PasswordVerdict{Reason: "Password must contain at least one number"}
	}
	return PasswordVerdict{Valid: true}
}

// PasswordHasher hashes and verifies passwords with bcrypt. At most
// concurrency hashes run at once; other callers wait on ctx.
type PasswordHasher struct {
	cost int
	sem  *semaphore.Weighted
}

func NewPasswordHasher(cost, concurrency int) *PasswordHasher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PasswordHasher{cost: cost, sem: semaphore.NewWeighted(int64(concurrency))}
}

// Hash returns a salted bcrypt digest of plaintext.
func (h *PasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A malformed digest or a
// cancelled ctx is reported as a mismatch.
func (h *PasswordHasher) Verify(ctx context.Context, plaintext, digest string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
