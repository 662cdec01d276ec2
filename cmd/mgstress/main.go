// Copyright 2024 The Mutexgear-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command mgstress is a manual soak-test harness for the primitives in this
// module. It runs the spec.md §8 end-to-end scenarios S1, S2, S3, S5 and
// S6 (one per primitive; the TRDL try-read scenario S4 is not run) under
// configurable goroutine/iteration counts and prints a
// summary of each run. It is not a substitute for the package test suites,
// which assert the scenarios' actual correctness properties; this just
// exercises them for longer, under more contention, for manual soaking.
package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mutexgear/go-mutexgear/completion"
	"github.com/mutexgear/go-mutexgear/internal/mgdiag"
	"github.com/mutexgear/go-mutexgear/maintlock"
	"github.com/mutexgear/go-mutexgear/mgattr"
	"github.com/mutexgear/go-mutexgear/rwlock"
	"github.com/mutexgear/go-mutexgear/toggle"
	"github.com/mutexgear/go-mutexgear/wheel"
)

var (
	flagScenario   = pflag.StringP("scenario", "s", "all", "scenario to run: toggle, wheel, completion, rwlock, maintlock, or all")
	flagIterations = pflag.IntP("iterations", "n", 2000, "iterations (or cycles) per scenario")
	flagReaders    = pflag.Int("readers", 8, "concurrent reader goroutines for the rwlock/maintlock scenarios")
	flagVerbose    = pflag.BoolP("verbose", "v", false, "enable debug-level logging")
)

var scenarios = map[string]func(*zap.Logger){}

func main() {
	pflag.Parse()

	cfg := zap.NewDevelopmentConfig()
	if !*flagVerbose {
		cfg.Level.SetLevel(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mgstress: building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	mgdiag.SetLogger(logger)

	scenarios["toggle"] = runToggle
	scenarios["wheel"] = runWheel
	scenarios["completion"] = runCompletion
	scenarios["rwlock"] = runRWLock
	scenarios["maintlock"] = runMaintLock
	names := []string{"toggle", "wheel", "completion", "rwlock", "maintlock"}

	targets := names
	if *flagScenario != "all" {
		if _, ok := scenarios[*flagScenario]; !ok {
			fmt.Fprintf(os.Stderr, "mgstress: unknown scenario %q (want one of %v or \"all\")\n", *flagScenario, names)
			os.Exit(2)
		}
		targets = []string{*flagScenario}
	}

	failed := false
	for _, name := range targets {
		if !runGuarded(logger, name, scenarios[name]) {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// runGuarded recovers a scenario's panic (the mgdiag.Fatal path for a
// precondition violation) so the remaining scenarios still run, and reports
// the last failed check recorded by internal/mgdiag.
func runGuarded(logger *zap.Logger, name string, fn func(*zap.Logger)) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			logger.Error("mgstress: scenario panicked",
				zap.String("scenario", name),
				zap.Any("panic", r),
				zap.String("last_failed_check", mgdiag.LastFailedCheck()),
			)
		}
	}()
	start := time.Now()
	fn(logger)
	logger.Info("mgstress: scenario complete", zap.String("scenario", name), zap.Duration("elapsed", time.Since(start)))
	return true
}

// runToggle is S1: a signaler flips n times while a waiter pushes on n
// times, each push_on pairing with its matched flip.
func runToggle(logger *zap.Logger) {
	n := *flagIterations
	tg := toggle.New()
	tg.Engage()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			tg.PushOn()
		}
	}()
	for i := 0; i < n; i++ {
		tg.Flip()
	}
	wg.Wait()
	tg.Disengage()

	if err := tg.Close(); err != nil {
		logger.Error("toggle: unexpected non-empty state on close", zap.Error(err))
	}
}

// runWheel is S2-shaped: a signaler advances the wheel n times while a
// gripped client turns n times, then releases.
func runWheel(logger *zap.Logger) {
	n := *flagIterations
	w := wheel.New()
	w.Engage()

	var clientReady sync.WaitGroup
	clientReady.Add(1)
	var done sync.WaitGroup
	done.Add(1)

	go func() {
		defer done.Done()
		w.GripOn()
		clientReady.Done()
		for i := 0; i < n; i++ {
			w.Turn()
		}
		w.Release()
	}()

	clientReady.Wait()
	for i := 0; i < n; i++ {
		w.Advance()
	}
	done.Wait()
	w.Disengage()

	if err := w.Close(); err != nil {
		logger.Error("wheel: unexpected non-empty state on close", zap.Error(err))
	}
}

// runCompletion is S6, repeated n times: several workers enqueue items, a
// waiter blocks on a specific item, and that item's dequeue must be the one
// that releases it.
func runCompletion(logger *zap.Logger) {
	n := *flagIterations
	for i := 0; i < n; i++ {
		q := completion.NewQueue()
		waiter := completion.NewWaiter()

		w1, w2, w3 := completion.NewWorker(), completion.NewWorker(), completion.NewWorker()
		i1, i2, i3 := completion.NewItem(), completion.NewItem(), completion.NewItem()
		w1.Lock()
		q.Enqueue(w1, i1)
		w2.Lock()
		q.Enqueue(w2, i2)
		w3.Lock()
		q.Enqueue(w3, i3)

		done := make(chan struct{})
		go func() {
			completion.WaitFor(waiter, i2)
			close(done)
		}()

		q.Dequeue(i1)
		q.Dequeue(i3)
		q.Dequeue(i2)
		<-done
	}
	logger.Debug("completion: all cycles observed matched wait_for/dequeue pairing", zap.Int("cycles", n))
}

// runRWLock is S3-shaped, sustained: flagReaders readers cycle read locks
// while a writer repeatedly asserts writer-priority (readersTillWP=0) and
// must always be admitted without starving forever.
func runRWLock(logger *zap.Logger) {
	attr, err := mgattr.NewRWLockAttr(mgattr.WithWriteChannels(4))
	if err != nil {
		logger.Error("rwlock: building attr", zap.Error(err))
		return
	}
	rw := rwlock.New(attr)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < *flagReaders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := completion.NewWorker()
			waiter := completion.NewWaiter()
			for {
				select {
				case <-stop:
					return
				default:
				}
				it := completion.NewItem()
				rw.RdLock(w, waiter, it)
				rw.RdUnlock(it)
			}
		}()
	}

	n := *flagIterations
	for i := 0; i < n; i++ {
		rw.WrLock(completion.NewWorker(), completion.NewWaiter(), completion.NewItem(), 0)
		rw.WrUnlock()
	}
	close(stop)
	wg.Wait()

	if err := rw.Close(); err != nil {
		logger.Error("rwlock: unexpected non-empty state on close", zap.Error(err))
	}
	logger.Debug("rwlock: writer-priority acquisitions completed", zap.Int("count", n))
}

// runMaintLock is S5, repeated: a pool of readers holds try_rdlock admissions
// while a maintainer repeatedly quiesces and drains them.
func runMaintLock(logger *zap.Logger) {
	attr, err := mgattr.NewMaintLockAttr()
	if err != nil {
		logger.Error("maintlock: building attr", zap.Error(err))
		return
	}
	ml := maintlock.New(attr)

	for cycle := 0; cycle < *flagIterations/100+1; cycle++ {
		items := make([]*completion.Item, *flagReaders)
		tokens := make([]uint64, *flagReaders)
		for i := range items {
			it := completion.NewItem()
			tok, err := ml.TryRdLock(completion.NewWorker(), it)
			if err != nil {
				logger.Error("maintlock: unexpected BUSY admitting reader", zap.Int("index", i))
				continue
			}
			items[i] = it
			tokens[i] = tok
		}

		if err := ml.SetMaintenance(); err != nil {
			logger.Error("maintlock: unexpected BUSY setting maintenance", zap.Error(err))
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			ml.WaitRdUnlock(completion.NewWaiter())
		}()

		for i, it := range items {
			if it == nil {
				continue
			}
			ml.RdUnlock(it, tokens[i])
		}
		wg.Wait()
		ml.ClearMaintenance()
	}

	if err := ml.Close(); err != nil {
		logger.Error("maintlock: unexpected non-empty state on close", zap.Error(err))
	}
}
