// Package auth implements the one-time-passcode gate used to verify control of a
// registered phone number. Codes live only in process memory; there is no attempt
// lockout, only single-use semantics and an expiry window.
package auth

import (
	"crypto/rand"
	"math/big"
	"sync"
	"time"
)

// VerifyResult is the outcome of an OTP verification attempt
type VerifyResult int

const (
	// VerifyAccepted means the code matched and has been consumed
	VerifyAccepted VerifyResult = iota
	// VerifyInvalidCode means a code is pending for the claim but the submitted one
	// doesn't match; the pending code is left in place
	VerifyInvalidCode
	// VerifyNoPendingRequest means no code is pending for the claim
	VerifyNoPendingRequest
	// VerifyExpired means the pending code outlived the expiry window; it has been
	// discarded
	VerifyExpired
)

const codeLength = 6

type otpEntry struct {
	code     string
	issuedAt time.Time
}

// OTPStore correlates a verification claim (the aadhaar number) to a pending
// one-time code. Issue and Verify are atomic with respect to each other: two
// concurrent verifications of the same claim cannot both consume one code. The
// critical section only touches the map, never an adapter call.
type OTPStore struct {
	mu      sync.Mutex
	entries map[string]otpEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewOTPStore creates a store whose codes expire after ttl. A zero ttl disables
// expiry.
func NewOTPStore(ttl time.Duration) *OTPStore {
	return &OTPStore{
		entries: map[string]otpEntry{},
		ttl:     ttl,
		now:     time.Now,
	}
}

// Issue generates a fresh 6-digit code for the claim, replacing any pending one,
// and returns it for delivery
func (s *OTPStore) Issue(claim string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.entries[claim] = otpEntry{code: code, issuedAt: s.now()}
	s.mu.Unlock()

	return code, nil
}

// Verify checks the submitted code against the pending one for the claim. On
// acceptance the code is deleted, so a repeat of the same code reports
// VerifyNoPendingRequest. A wrong code leaves the pending entry untouched.
func (s *OTPStore) Verify(claim, submitted string) VerifyResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[claim]
	if !ok {
		return VerifyNoPendingRequest
	}

	if s.ttl > 0 && s.now().Sub(entry.issuedAt) > s.ttl {
		delete(s.entries, claim)
		return VerifyExpired
	}

	if entry.code != submitted {
		return VerifyInvalidCode
	}

	delete(s.entries, claim)
	return VerifyAccepted
}

// generateCode draws 6 uniform digits from the crypto source
func generateCode() (string, error) {
	digits := make([]byte, codeLength)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
