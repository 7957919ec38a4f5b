package security

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// Settings is the boundary to the external configuration source. Lookups
// are typed and return the provided default when a key is unset. The
// factory functions below are the only seam where raw configuration
// becomes validated domain objects.
type Settings interface {
	GetString(key, def string) string
	GetInt(key string, def int) int
	GetBool(key string, def bool) bool
}

// Configuration keys consumed by the factory.
const (
	KeyHashAlgorithm        = "HASH_ALGORITHM"
	KeyCostTime             = "COST_TIME"
	KeyCostMemoryKiB        = "COST_MEMORY_KIB"
	KeyCostParallelism      = "COST_PARALLELISM"
	KeyCostHashLen          = "COST_HASH_LEN"
	KeyCostSaltLen          = "COST_SALT_LEN"
	KeyCostPepper           = "COST_PEPPER"
	KeyPasswordMinLength    = "PASSWORD_MIN_LENGTH"
	KeyPasswordRequireUpper = "PASSWORD_REQUIRE_UPPER"
	KeyPasswordRequireLower = "PASSWORD_REQUIRE_LOWER"
	KeyPasswordRequireDigit = "PASSWORD_REQUIRE_DIGIT"
	KeyPasswordRequireSpec  = "PASSWORD_REQUIRE_SPECIAL"
	KeySecretKey            = "SECRET_KEY"
	KeyResetTokenTTL        = "RESET_TOKEN_TTL_SECONDS"
)

const (
	defaultMinLength     = 8
	defaultResetTokenTTL = 600
)

// BuildCostPolicy reads the cost keys from s and constructs a validated
// CostPolicy, propagating any PolicyError unchanged. A value that does not
// fit its parameter type is a hard configuration error, never truncated.
func BuildCostPolicy(s Settings, log *zap.Logger) (CostPolicy, error) {
	def := DefaultCostPolicy()

	timeCost, err := uint32Setting(s, KeyCostTime, def.TimeCost)
	if err != nil {
		return CostPolicy{}, err
	}
	memoryKiB, err := uint32Setting(s, KeyCostMemoryKiB, def.MemoryKiB)
	if err != nil {
		return CostPolicy{}, err
	}
	parallelism, err := uint8Setting(s, KeyCostParallelism, def.Parallelism)
	if err != nil {
		return CostPolicy{}, err
	}
	hashLength, err := uint32Setting(s, KeyCostHashLen, def.HashLength)
	if err != nil {
		return CostPolicy{}, err
	}
	saltLength, err := uint32Setting(s, KeyCostSaltLen, def.SaltLength)
	if err != nil {
		return CostPolicy{}, err
	}

	return NewCostPolicy(CostPolicy{
		TimeCost:    timeCost,
		MemoryKiB:   memoryKiB,
		Parallelism: parallelism,
		HashLength:  hashLength,
		SaltLength:  saltLength,
		Pepper:      s.GetString(KeyCostPepper, ""),
	}, log)
}

// BuildStrengthPolicy reads the password keys from s and constructs a
// validated StrengthPolicy.
func BuildStrengthPolicy(s Settings, log *zap.Logger) (StrengthPolicy, error) {
	return NewStrengthPolicy(StrengthPolicy{
		MinLength:      s.GetInt(KeyPasswordMinLength, defaultMinLength),
		RequireUpper:   s.GetBool(KeyPasswordRequireUpper, true),
		RequireLower:   s.GetBool(KeyPasswordRequireLower, true),
		RequireDigit:   s.GetBool(KeyPasswordRequireDigit, true),
		RequireSpecial: s.GetBool(KeyPasswordRequireSpec, true),
	}, log)
}

// BuildHasher builds the cost policy from s and resolves the configured
// algorithm name through reg. Errors from either step propagate unchanged
// and should abort startup.
func BuildHasher(reg *Registry, s Settings, log *zap.Logger) (*Hasher, error) {
	policy, err := BuildCostPolicy(s, log)
	if err != nil {
		return nil, err
	}
	return NewHasher(reg, s.GetString(KeyHashAlgorithm, AlgorithmArgon2), policy)
}

// BuildTokenIssuer reads the signing secret and token lifetime from s.
// A missing secret is a hard configuration error.
func BuildTokenIssuer(s Settings) (*TokenIssuer, error) {
	secret := s.GetString(KeySecretKey, "")
	if secret == "" {
		return nil, policyErrorf("%s must be set", KeySecretKey)
	}
	ttl := s.GetInt(KeyResetTokenTTL, defaultResetTokenTTL)
	if ttl <= 0 {
		return nil, policyErrorf("%s must be positive", KeyResetTokenTTL)
	}
	return NewTokenIssuer(secret, time.Duration(ttl)*time.Second), nil
}

// uint32Setting reads an int key, rejecting values outside the uint32
// range so a bad knob can never wrap or truncate into a weaker one.
func uint32Setting(s Settings, key string, def uint32) (uint32, error) {
	v := s.GetInt(key, int(def))
	if v < 0 || int64(v) > math.MaxUint32 {
		return 0, policyErrorf("%s out of range: %d", key, v)
	}
	return uint32(v), nil
}

// uint8Setting is uint32Setting for uint8-sized knobs.
func uint8Setting(s Settings, key string, def uint8) (uint8, error) {
	v := s.GetInt(key, int(def))
	if v < 0 || v > math.MaxUint8 {
		return 0, policyErrorf("%s out of range: %d", key, v)
	}
	return uint8(v), nil
}
