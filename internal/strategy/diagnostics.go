package strategy

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Stage names a gate of the screen.
type Stage string

const (
	StageFundamentals Stage = "fundamentals"
	StageSector       Stage = "sector"
	StageEPS          Stage = "eps"
	StageTechnical    Stage = "technical"
	StageValuation    Stage = "valuation"
)

// Stages lists the gates in evaluation order.
var Stages = []Stage{StageFundamentals, StageSector, StageEPS, StageTechnical, StageValuation}

func stageIndex(s Stage) int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Diagnostics counts, per stage, how many tickers passed and how many were
// rejected there. Safe for concurrent use.
type Diagnostics struct {
	evaluated atomic.Int64
	accepted  atomic.Int64
	passed    [5]atomic.Int64
	rejected  [5]atomic.Int64
	errored   atomic.Int64
}

// StageCount is one row of a diagnostics snapshot.
type StageCount struct {
	Stage    Stage
	Passed   int64
	Rejected int64
}

func (d *Diagnostics) start() {
	if d != nil {
		d.evaluated.Add(1)
	}
}

func (d *Diagnostics) pass(s Stage) {
	if d == nil {
		return
	}
	if i := stageIndex(s); i >= 0 {
		d.passed[i].Add(1)
	}
}

func (d *Diagnostics) reject(s Stage, err error) {
	if d == nil {
		return
	}
	if i := stageIndex(s); i >= 0 {
		d.rejected[i].Add(1)
	}
	if err != nil {
		d.errored.Add(1)
	}
}

func (d *Diagnostics) accept() {
	if d != nil {
		d.accepted.Add(1)
	}
}

// Evaluated is the number of tickers run through the screen.
func (d *Diagnostics) Evaluated() int64 { return d.evaluated.Load() }

// Accepted is the number of tickers that passed every gate.
func (d *Diagnostics) Accepted() int64 { return d.accepted.Load() }

// Errors is the number of rejections caused by fetch failures or panics.
func (d *Diagnostics) Errors() int64 { return d.errored.Load() }

// Snapshot returns the per-stage counters in evaluation order, omitting
// stages no ticker reached.
func (d *Diagnostics) Snapshot() []StageCount {
	out := make([]StageCount, 0, len(Stages))
	for i, s := range Stages {
		p, r := d.passed[i].Load(), d.rejected[i].Load()
		if p == 0 && r == 0 {
			continue
		}
		out = append(out, StageCount{Stage: s, Passed: p, Rejected: r})
	}
	return out
}

func (d *Diagnostics) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "evaluated %d, accepted %d", d.Evaluated(), d.Accepted())
	for _, c := range d.Snapshot() {
		fmt.Fprintf(&b, "; %s passed %d rejected %d", c.Stage, c.Passed, c.Rejected)
	}
	if n := d.Errors(); n > 0 {
		fmt.Fprintf(&b, "; %d errors", n)
	}
	return b.String()
}
