// Package cycling implements the deterministic per-instance item rotation
// (component C4): sequential or random selection, each in stateless or
// gap-leap mode.
package cycling

import (
	"github.com/motioneffector/reflow/errs"
	"github.com/motioneffector/reflow/model"
)

// Resolve returns the item selected for instanceNumber under cycling's
// current mode and state, per spec.md §4.4.
func Resolve(cycling model.CyclingState, instanceNumber int) (string, error) {
	if len(cycling.Items) == 0 {
		return "", errs.Validation("cycling: items must not be empty")
	}
	switch cycling.Mode {
	case model.CyclingSequential:
		if cycling.GapLeap {
			return cycling.Items[cycling.CurrentIndex%len(cycling.Items)], nil
		}
		return cycling.Items[mod(instanceNumber, len(cycling.Items))], nil
	case model.CyclingRandom:
		if cycling.GapLeap {
			return cycling.Items[hashMod(cycling.CurrentIndex, len(cycling.Items))], nil
		}
		return cycling.Items[hashMod(instanceNumber, len(cycling.Items))], nil
	default:
		return "", errs.Validation("cycling: unrecognized mode %q", cycling.Mode)
	}
}

// Advance moves the gap-leap cursor forward by one item. Only meaningful
// (and only ever called by consumers) when GapLeap is set and an instance
// was actually completed — the core never invokes this automatically.
func Advance(cycling model.CyclingState) (model.CyclingState, error) {
	if !cycling.GapLeap {
		return cycling, errs.Validation("cycling: advance requires gapLeap")
	}
	if len(cycling.Items) == 0 {
		return cycling, errs.Validation("cycling: items must not be empty")
	}
	next := cycling
	next.CurrentIndex = (cycling.CurrentIndex + 1) % len(cycling.Items)
	return next, nil
}

// Reset sets the gap-leap cursor back to the first item.
func Reset(cycling model.CyclingState) model.CyclingState {
	next := cycling
	next.CurrentIndex = 0
	return next
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// hashMod derives a deterministic pseudo-random bucket in [0, n) from a
// pure hash of v. No system RNG: two calls with the same v and n always
// agree, as required for byte-identical reflow output.
func hashMod(v, n int) int {
	h := splitmix64(uint64(int64(v)))
	return int(h % uint64(n))
}

// splitmix64 is a fast, well-distributed integer hash (public-domain
// SplitMix64 finalizer).
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	x = x ^ (x >> 31)
	return x
}
