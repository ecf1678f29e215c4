package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueGeneratesSixDigitCode(t *testing.T) {
	store := NewOTPStore(0)

	code, err := store.Issue("123456789012")
	require.NoError(t, err)

	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "code contains non-digit %q", r)
	}
}

func TestVerifyAcceptsIssuedCode(t *testing.T) {
	store := NewOTPStore(0)

	code, err := store.Issue("123456789012")
	require.NoError(t, err)

	assert.Equal(t, VerifyInvalidCode, store.Verify("123456789012", "000000"))
	assert.Equal(t, VerifyAccepted, store.Verify("123456789012", code))
}

func TestVerifyIsSingleUse(t *testing.T) {
	store := NewOTPStore(0)

	code, err := store.Issue("123456789012")
	require.NoError(t, err)

	require.Equal(t, VerifyAccepted, store.Verify("123456789012", code))
	assert.Equal(t, VerifyNoPendingRequest, store.Verify("123456789012", code))
}

func TestVerifyUnknownClaim(t *testing.T) {
	store := NewOTPStore(0)

	assert.Equal(t, VerifyNoPendingRequest, store.Verify("999999999999", "123456"))
}

func TestIssueReplacesPendingCode(t *testing.T) {
	store := NewOTPStore(0)

	first, err := store.Issue("123456789012")
	require.NoError(t, err)

	second, err := store.Issue("123456789012")
	require.NoError(t, err)

	if first != second {
		assert.Equal(t, VerifyInvalidCode, store.Verify("123456789012", first))
	}
	assert.Equal(t, VerifyAccepted, store.Verify("123456789012", second))
}

func TestVerifyExpiredCode(t *testing.T) {
	store := NewOTPStore(10 * time.Minute)

	now := time.Now()
	store.now = func() time.Time { return now }

	code, err := store.Issue("123456789012")
	require.NoError(t, err)

	store.now = func() time.Time { return now.Add(11 * time.Minute) }

	assert.Equal(t, VerifyExpired, store.Verify("123456789012", code))
	assert.Equal(t, VerifyNoPendingRequest, store.Verify("123456789012", code))
}

func TestVerifyWithinTTL(t *testing.T) {
	store := NewOTPStore(10 * time.Minute)

	now := time.Now()
	store.now = func() time.Time { return now }

	code, err := store.Issue("123456789012")
	require.NoError(t, err)

	store.now = func() time.Time { return now.Add(9 * time.Minute) }

	assert.Equal(t, VerifyAccepted, store.Verify("123456789012", code))
}

func TestConcurrentVerifyConsumesOnce(t *testing.T) {
	store := NewOTPStore(0)

	code, err := store.Issue("123456789012")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan VerifyResult, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.Verify("123456789012", code)
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for result := range results {
		if result == VerifyAccepted {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
}
