// Package main is an offline tool for tuning password hashing costs. By
// default it times a set of preset cost profiles; with -calibrate it
// searches for the smallest time cost that reaches the target latency.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mkrylov/identityd/internal/calibrate"
	"github.com/mkrylov/identityd/internal/security"
)

func main() {
	var (
		runSearch = flag.Bool("calibrate", false, "search for the time cost reaching the target latency")
		target    = flag.Duration("target", calibrate.DefaultTarget, "target latency for one hash")
		loops     = flag.Int("loops", calibrate.DefaultLoops, "repetitions per latency sample")
		memoryKiB = flag.Uint("memory", 64*1024, "argon2 memory in KiB during the search")
		threads   = flag.Uint("parallelism", 2, "argon2 parallelism during the search")
	)
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	registry := security.NewRegistry(log)
	security.RegisterBuiltins(registry)

	if *runSearch {
		if err := search(registry, *target, *loops, uint32(*memoryKiB), uint8(*threads)); err != nil {
			log.Fatal("calibration failed", zap.Error(err))
		}
		return
	}

	if err := timeProfiles(registry, *loops); err != nil {
		log.Fatal("profile timing failed", zap.Error(err))
	}
}

// search walks the time-cost knob up until a single hash takes at least
// target.
func search(registry *security.Registry, target time.Duration, loops int, memoryKiB uint32, threads uint8) error {
	base := security.CostPolicy{
		TimeCost:    2,
		MemoryKiB:   memoryKiB,
		Parallelism: threads,
		HashLength:  32,
		SaltLength:  16,
	}

	fmt.Printf("searching time cost: target=%v memory=%dKiB parallelism=%d loops=%d\n",
		target, memoryKiB, threads, loops)

	res, err := calibrate.CalibrateTimeCost(registry, security.AlgorithmArgon2, base, target, loops)
	if err != nil {
		return err
	}

	fmt.Printf("time_cost=%d reaches %v (target %v)\n", res.Value, res.Latency, target)
	return nil
}

// timeProfiles hashes once per preset profile and reports the latency.
func timeProfiles(registry *security.Registry, loops int) error {
	ctor, err := registry.Resolve(security.AlgorithmArgon2)
	if err != nil {
		return err
	}

	fmt.Printf("%-15s %8s %12s %12s %10s\n", "profile", "time", "memory KiB", "parallelism", "latency")
	for _, profile := range calibrate.DefaultProfiles() {
		impl, err := ctor(profile.Policy)
		if err != nil {
			return fmt.Errorf("build %s: %w", profile.Name, err)
		}
		latency, err := calibrate.MeanLatency(func() error {
			_, err := impl.Hash("abc123")
			return err
		}, loops)
		if err != nil {
			return fmt.Errorf("time %s: %w", profile.Name, err)
		}
		fmt.Printf("%-15s %8d %12d %12d %10v\n",
			profile.Name, profile.Policy.TimeCost, profile.Policy.MemoryKiB,
			profile.Policy.Parallelism, latency)
	}
	return nil
}
