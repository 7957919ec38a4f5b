package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// AlgorithmArgon2 is the registry name of the Argon2id implementation.
const AlgorithmArgon2 = "argon2"

// argon2ID is the tag embedded in the stored hash blob.
const argon2ID = "argon2id"

// Algorithm is the contract every registered hashing implementation
// satisfies. Implementations are stateless with respect to calls: both
// operations are pure over the held cost policy.
type Algorithm interface {
	// Hash derives a self-describing hash blob from password.
	Hash(password string) (string, error)
	// Verify reports whether password matches the stored blob. It returns
	// false on any mismatch, malformed blob, or empty input, never an
	// error.
	Verify(stored, password string) bool
}

// Argon2 hashes passwords with Argon2id. The policy pepper, when present,
// is appended to the password before key derivation on every hash and
// verify call; it is never stored alongside the hash.
type Argon2 struct {
	policy CostPolicy
}

var _ Algorithm = (*Argon2)(nil)

// NewArgon2 is the registry constructor for the Argon2id implementation.
func NewArgon2(policy CostPolicy) (Algorithm, error) {
	return &Argon2{policy: policy}, nil
}

// Hash derives an Argon2id digest from password and a fresh random salt,
// returning a PHC-format blob embedding the algorithm tag, parameters,
// salt, and digest.
func (a *Argon2) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, a.policy.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	digest := argon2.IDKey(
		a.withPepper(password),
		salt,
		a.policy.TimeCost,
		a.policy.MemoryKiB,
		a.policy.Parallelism,
		a.policy.HashLength,
	)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID,
		argon2.Version,
		a.policy.MemoryKiB,
		a.policy.TimeCost,
		a.policy.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// Verify recomputes the digest using the parameters embedded in stored and
// compares in constant time. Malformed blobs and empty inputs report a
// plain mismatch, indistinguishable from a wrong password.
func (a *Argon2) Verify(stored, password string) bool {
	if stored == "" || password == "" {
		return false
	}

	params, salt, digest, err := decodeArgon2Blob(stored)
	if err != nil {
		return false
	}

	computed := argon2.IDKey(
		a.withPepper(password),
		salt,
		params.time,
		params.memory,
		params.parallelism,
		uint32(len(digest)),
	)

	return subtle.ConstantTimeCompare(computed, digest) == 1
}

func (a *Argon2) withPepper(password string) []byte {
	return []byte(password + a.policy.Pepper)
}

var errMalformedHash = errors.New("malformed hash blob")

type argon2Params struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func decodeArgon2Blob(stored string) (argon2Params, []byte, []byte, error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != argon2ID {
		return argon2Params{}, nil, nil, errMalformedHash
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return argon2Params{}, nil, nil, errMalformedHash
	}

	params, err := decodeArgon2Params(parts[3])
	if err != nil {
		return argon2Params{}, nil, nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return argon2Params{}, nil, nil, errMalformedHash
	}
	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(digest) == 0 {
		return argon2Params{}, nil, nil, errMalformedHash
	}

	return params, salt, digest, nil
}

func decodeArgon2Params(part string) (argon2Params, error) {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return argon2Params{}, errMalformedHash
	}

	var params argon2Params
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return argon2Params{}, errMalformedHash
		}
		switch key {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return argon2Params{}, errMalformedHash
			}
			params.memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return argon2Params{}, errMalformedHash
			}
			params.time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return argon2Params{}, errMalformedHash
			}
			params.parallelism = uint8(v)
		default:
			return argon2Params{}, errMalformedHash
		}
	}

	if params.memory == 0 || params.time == 0 || params.parallelism == 0 {
		return argon2Params{}, errMalformedHash
	}
	return params, nil
}
