package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastCostPolicy keeps test hashing cheap; production parameters are far
// heavier.
func fastCostPolicy() CostPolicy {
	return CostPolicy{
		TimeCost:    1,
		MemoryKiB:   8 * 1024,
		Parallelism: 1,
		HashLength:  16,
		SaltLength:  16,
	}
}

func newTestArgon2(t *testing.T, policy CostPolicy) Algorithm {
	t.Helper()
	impl, err := NewArgon2(policy)
	require.NoError(t, err)
	return impl
}

func TestArgon2_HashVerifyRoundTrip(t *testing.T) {
	impl := newTestArgon2(t, fastCostPolicy())

	blob, err := impl.Hash("s3cret-Pass!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(blob, "$argon2id$"), "blob should be self-describing: %s", blob)

	assert.True(t, impl.Verify(blob, "s3cret-Pass!"))
	assert.False(t, impl.Verify(blob, "s3cret-Pass?"))
}

func TestArgon2_HashEmptyPassword(t *testing.T) {
	impl := newTestArgon2(t, fastCostPolicy())
	_, err := impl.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestArgon2_HashesAreSalted(t *testing.T) {
	impl := newTestArgon2(t, fastCostPolicy())
	first, err := impl.Hash("same-password1!")
	require.NoError(t, err)
	second, err := impl.Hash("same-password1!")
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "two hashes of one password must differ by salt")
}

func TestArgon2_VerifyNeverErrors(t *testing.T) {
	impl := newTestArgon2(t, fastCostPolicy())
	blob, err := impl.Hash("s3cret-Pass!")
	require.NoError(t, err)

	tests := []struct {
		name     string
		stored   string
		password string
	}{
		{"empty stored", "", "s3cret-Pass!"},
		{"empty password", blob, ""},
		{"both empty", "", ""},
		{"garbage blob", "not-a-hash", "s3cret-Pass!"},
		{"wrong algorithm tag", "$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$ZGlnZXN0", "s3cret-Pass!"},
		{"truncated blob", "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA", "s3cret-Pass!"},
		{"bad parameters", "$argon2id$v=19$m=0,t=0,p=0$c2FsdA$ZGlnZXN0", "s3cret-Pass!"},
		{"bad base64 salt", "$argon2id$v=19$m=8192,t=1,p=1$!!!$ZGlnZXN0", "s3cret-Pass!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, impl.Verify(tt.stored, tt.password))
		})
	}
}

func TestArgon2_VerifyReadsParametersFromBlob(t *testing.T) {
	hashed := newTestArgon2(t, fastCostPolicy())
	blob, err := hashed.Hash("s3cret-Pass!")
	require.NoError(t, err)

	// A verifier configured with different costs must still match, because
	// the blob carries its own parameters.
	heavier := fastCostPolicy()
	heavier.TimeCost = 3
	verifier := newTestArgon2(t, heavier)
	assert.True(t, verifier.Verify(blob, "s3cret-Pass!"))
}

func TestArgon2_PepperMustBeResupplied(t *testing.T) {
	peppered := fastCostPolicy()
	peppered.Pepper = "orthogonal-pepper-secret"

	withPepper := newTestArgon2(t, peppered)
	blob, err := withPepper.Hash("s3cret-Pass!")
	require.NoError(t, err)

	assert.True(t, withPepper.Verify(blob, "s3cret-Pass!"))
	assert.NotContains(t, blob, peppered.Pepper, "pepper must never be stored with the hash")

	withoutPepper := newTestArgon2(t, fastCostPolicy())
	assert.False(t, withoutPepper.Verify(blob, "s3cret-Pass!"),
		"verification without the configured pepper must fail")

	otherPepper := fastCostPolicy()
	otherPepper.Pepper = "a-different-pepper-value"
	mismatched := newTestArgon2(t, otherPepper)
	assert.False(t, mismatched.Verify(blob, "s3cret-Pass!"))
}
