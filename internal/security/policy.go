package security

import (
	"go.uber.org/zap"
)

// Hard floors. A value below any of these is a construction error.
const (
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minHashLength  uint32 = 16
	minSaltLength  uint32 = 16
)

// Soft thresholds. Values outside these bounds are legal but flagged.
const (
	warnMemoryKiB     uint32 = 64 * 1024   // 64 MiB
	baselineMemoryKiB uint32 = 128 * 1024  // 128 MiB, OWASP baseline
	maxMemoryKiB      uint32 = 1024 * 1024 // 1 GiB
	warnHashLength    uint32 = 32
	maxTimeCost       uint32 = 20
	maxParallelism    uint8  = 64
	minPepperLength          = 16
)

// CostPolicy bundles the tunable parameters controlling how expensive one
// hash operation is. A policy is built once from configuration at process
// start and never mutated afterwards, so a single value may be shared
// across goroutines.
type CostPolicy struct {
	// TimeCost is the iteration count of the key derivation.
	TimeCost uint32
	// MemoryKiB is the memory cost in kibibytes.
	MemoryKiB uint32
	// Parallelism is the degree of lane parallelism.
	Parallelism uint8
	// HashLength is the derived digest length in bytes.
	HashLength uint32
	// SaltLength is the per-hash random salt length in bytes.
	SaltLength uint32
	// Pepper is an optional secret appended to every password before
	// hashing. It lives only in configuration and is never stored with
	// the hash.
	Pepper string
}

// DefaultCostPolicy returns the baseline parameters used when
// configuration provides none.
func DefaultCostPolicy() CostPolicy {
	return CostPolicy{
		TimeCost:    6,
		MemoryKiB:   100 * 1024,
		Parallelism: 4,
		HashLength:  32,
		SaltLength:  16,
	}
}

// NewCostPolicy validates p and returns it unchanged. Hard-floor violations
// fail with a *PolicyError. Weak-but-legal values (below the recommended
// baselines or above the sane ceilings) are reported through log and never
// block construction.
func NewCostPolicy(p CostPolicy, log *zap.Logger) (CostPolicy, error) {
	if p.TimeCost < minTimeCost {
		return CostPolicy{}, policyErrorf("time cost must be >= %d", minTimeCost)
	}
	if p.Parallelism < minParallelism {
		return CostPolicy{}, policyErrorf("parallelism must be >= %d", minParallelism)
	}
	if p.HashLength < minHashLength {
		return CostPolicy{}, policyErrorf("hash length must be >= %d bytes", minHashLength)
	}
	if p.SaltLength < minSaltLength {
		return CostPolicy{}, policyErrorf("salt length must be >= %d bytes", minSaltLength)
	}

	if p.MemoryKiB < warnMemoryKiB {
		log.Warn("memory cost is below the recommended minimum",
			zap.Uint32("memory_kib", p.MemoryKiB),
			zap.Uint32("recommended_kib", warnMemoryKiB))
	}
	if p.MemoryKiB < baselineMemoryKiB {
		log.Warn("memory cost is below the OWASP baseline",
			zap.Uint32("memory_kib", p.MemoryKiB),
			zap.Uint32("baseline_kib", baselineMemoryKiB))
	}
	if p.HashLength < warnHashLength {
		log.Warn("hash length is below the OWASP baseline",
			zap.Uint32("hash_length", p.HashLength),
			zap.Uint32("baseline", warnHashLength))
	}
	if p.TimeCost > maxTimeCost {
		log.Warn("time cost is unusually high",
			zap.Uint32("time_cost", p.TimeCost),
			zap.Uint32("ceiling", maxTimeCost))
	}
	if p.MemoryKiB > maxMemoryKiB {
		log.Warn("memory cost is extremely high",
			zap.Uint32("memory_kib", p.MemoryKiB),
			zap.Uint32("ceiling_kib", maxMemoryKiB))
	}
	if p.Parallelism > maxParallelism {
		log.Warn("parallelism is unusually high and may cause instability",
			zap.Uint8("parallelism", p.Parallelism),
			zap.Uint8("ceiling", maxParallelism))
	}

	switch {
	case p.Pepper == "":
		log.Info("no pepper configured; hashes rely on per-hash salt alone")
	case len(p.Pepper) < minPepperLength:
		log.Warn("pepper is shorter than recommended",
			zap.Int("length", len(p.Pepper)),
			zap.Int("recommended", minPepperLength))
	}

	return p, nil
}
