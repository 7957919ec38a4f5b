// Package calibrate measures password-hashing latency and searches for
// cost parameters that hit a target wall-clock duration. It is an offline
// tool; nothing here belongs on a request path.
package calibrate

import (
	"errors"
	"fmt"
	"time"

	"github.com/mkrylov/identityd/internal/security"
)

const (
	// DefaultTarget is the latency a single hash operation should reach.
	DefaultTarget = 250 * time.Millisecond
	// DefaultLoops is how many repetitions a latency sample averages over.
	DefaultLoops = 3

	// probePassword is the sample input hashed during calibration. Its
	// content is irrelevant; argon2 latency does not depend on it.
	probePassword = "abc123"

	// searchCap bounds runaway searches when the measure function never
	// reaches the target.
	searchCap = 1 << 30
)

// ErrTargetUnreachable is returned when a search exceeds searchCap without
// the measured latency reaching the target.
var ErrTargetUnreachable = errors.New("calibrate: cost search exceeded parameter cap")

// Result is one settled search outcome: the smallest parameter value whose
// mean latency was at or above the target, and that latency.
type Result struct {
	Value   uint32
	Latency time.Duration
}

// MeasureFunc reports the mean latency of one hash operation at the given
// parameter value, averaged over loops repetitions.
type MeasureFunc func(value uint32, loops int) (time.Duration, error)

// MeanLatency times fn over loops runs and returns the mean duration.
func MeanLatency(fn func() error, loops int) (time.Duration, error) {
	if loops < 1 {
		loops = 1
	}
	start := time.Now()
	for i := 0; i < loops; i++ {
		if err := fn(); err != nil {
			return 0, err
		}
	}
	return time.Since(start) / time.Duration(loops), nil
}

// SearchMultiplicative walks a parameter up from seed, growing it by a
// factor of 1.2 (at least +1) per step, until the measured mean latency
// reaches target. Suited to iteration-style knobs with a wide range.
func SearchMultiplicative(seed uint32, target time.Duration, loops int, measure MeasureFunc) (Result, error) {
	return search(seed, target, loops, measure, func(v uint32) uint32 {
		next := v + v/5
		if next == v {
			next = v + 1
		}
		return next
	})
}

// SearchAdditive walks a parameter up from seed one step at a time. Suited
// to small-range knobs where a multiplicative jump would overshoot.
func SearchAdditive(seed uint32, target time.Duration, loops int, measure MeasureFunc) (Result, error) {
	return search(seed, target, loops, measure, func(v uint32) uint32 {
		return v + 1
	})
}

func search(seed uint32, target time.Duration, loops int, measure MeasureFunc, grow func(uint32) uint32) (Result, error) {
	if seed < 1 {
		seed = 1
	}
	value := seed
	for {
		latency, err := measure(value, loops)
		if err != nil {
			return Result{}, err
		}
		if latency >= target {
			return Result{Value: value, Latency: latency}, nil
		}
		value = grow(value)
		if value > searchCap {
			return Result{}, ErrTargetUnreachable
		}
	}
}

// CalibrateTimeCost searches the argon2 time-cost knob, holding every other
// field of base fixed, for the smallest value whose mean hash latency over
// loops runs reaches target. The knob is stepped by one: time cost settles
// in a small range, and a multiplicative jump could skip the smallest
// satisfying value.
func CalibrateTimeCost(reg *security.Registry, algorithm string, base security.CostPolicy, target time.Duration, loops int) (Result, error) {
	ctor, err := reg.Resolve(algorithm)
	if err != nil {
		return Result{}, err
	}
	measure := func(value uint32, loops int) (time.Duration, error) {
		policy := base
		policy.TimeCost = value
		impl, err := ctor(policy)
		if err != nil {
			return 0, fmt.Errorf("calibrate: build %s at time_cost=%d: %w", algorithm, value, err)
		}
		return MeanLatency(func() error {
			_, err := impl.Hash(probePassword)
			return err
		}, loops)
	}
	return SearchAdditive(base.TimeCost, target, loops, measure)
}

// Profile is a named cost preset timed by the default (non-search) mode of
// the calibration tool.
type Profile struct {
	Name   string
	Policy security.CostPolicy
}

// DefaultProfiles returns the presets the calibration tool times when not
// running a search, spanning constrained devices up to memory-heavy servers.
func DefaultProfiles() []Profile {
	preset := func(name string, timeCost, memoryKiB uint32, par uint8) Profile {
		return Profile{Name: name, Policy: security.CostPolicy{
			TimeCost:    timeCost,
			MemoryKiB:   memoryKiB,
			Parallelism: par,
			HashLength:  32,
			SaltLength:  16,
		}}
	}
	return []Profile{
		preset("Small device", 4, 32*1024, 1),
		preset("Balanced", 6, 64*1024, 2),
		preset("Production", 8, 128*1024, 2),
		preset("High security", 10, 128*1024, 3),
		preset("Memory-heavy", 4, 256*1024, 1),
	}
}
