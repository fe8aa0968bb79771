package machine

import (
	"context"
	"io"

	"github.com/tapeforge/brains/debugs"
	"github.com/tapeforge/brains/instr"
	"github.com/tapeforge/brains/logs"
)

// Outcome reports why Dispatcher.Run stopped running a thread.
type Outcome int

const (
	Rescheduled Outcome = iota
	Died
	Slept
)

// Dispatcher executes one thread's quantum against a World, mirroring
// this codebase's own bytecode interpreter loop (a switch over a
// decoded opcode byte, direct struct field mutation, no goroutines)
// adapted from that loop's iterator-style resumption to a plain
// "run until outcome" call, since here the scheduler decides whether
// and when to resume a thread, not the caller.
type Dispatcher struct {
	World *World
	Sched Scheduler
	Debug DebugLevel
	Log   logs.Logger
	Tap   debugs.Tap
}

// NewDispatcher builds a Dispatcher over w using sched for scheduling
// decisions triggered by opcodes (`&`, `%`, `^`, death/reap).
func NewDispatcher(w *World, sched Scheduler, debug DebugLevel, log logs.Logger, tap debugs.Tap) *Dispatcher {
	return &Dispatcher{World: w, Sched: sched, Debug: debug, Log: log, Tap: tap}
}

// Run executes t for up to quantum cost units; quantum <= 0 means run
// until the thread yields, sleeps, dies, or separates. On Died or
// Slept, t has already been fully handled (reaped or parked) and the
// caller must not touch it again. On Rescheduled, the caller owns
// requeuing t.
func (d *Dispatcher) Run(t *TCB, quantum int) Outcome {
	w := d.World
	cost := 1
	spent := 0

	for quantum <= 0 || spent < quantum {
		if t.PC < 0 || t.PC >= len(w.Code) {
			d.terminate(t)
			return Died
		}
		word := w.Code[t.PC]
		op := word.Op()
		n := word.Payload()
		t.PC++

		thisCost := cost

		switch op {
		case instr.OpPlus:
			t.Segment[t.DP] += byte(n)

		case instr.OpMinus:
			t.Segment[t.DP] -= byte(n)

		case instr.OpRight:
			t.DP = (t.DP + int(n)) & DMASK

		case instr.OpLeft:
			t.DP = (t.DP - int(n)) & DMASK

		case instr.OpOutput:
			d.output(t, n)

		case instr.OpInput:
			d.input(t, n)

		case instr.OpLoopOpen:
			if t.Segment[t.DP] == 0 {
				t.PC += int(n)
			}

		case instr.OpLoopClose:
			if t.Segment[t.DP] != 0 {
				t.PC -= int(n)
			}

		case instr.OpULoopOpen:
			if t.Segment[t.DP] != 0 {
				t.PC += int(n)
			}

		case instr.OpULoopClose:
			if t.Segment[t.DP] == 0 {
				t.PC -= int(n)
			}

		case instr.OpIf:
			if t.Segment[t.DP] == 0 {
				t.PC += int(n)
			}

		case instr.OpJump:
			// also used for backfilled break/continue, per spec.md
			// §9's deliberate `:`/`|` fallthrough.
			t.PC += int(n)

		case instr.OpEndIf:
			// no-op

		case instr.OpClear:
			t.Segment[t.DP] = 0

		case instr.OpBind:
			t.Procs[word.BindProcID()] = t.PC
			t.PC += int(word.BindDisplacement())

		case instr.OpReturn:
			addr, ok := t.pop()
			if !ok {
				d.terminate(t)
				return Died
			}
			t.PC = addr

		case instr.OpYield:
			spent += thisCost
			return Rescheduled

		case instr.OpSeparate:
			d.terminate(t)
			return Died

		case instr.OpSetCost:
			cost = int(n)

		case instr.OpUp:
			d.up(t, n)

		case instr.OpDown:
			if d.down(t, n) {
				spent += thisCost
				return Slept
			}

		case instr.OpSwap:
			d.swap(t)

		case instr.OpSpawn:
			w.Spawn(t, d.Sched)

		case instr.OpFork:
			w.Fork(t, d.Sched)

		case instr.OpTrace:
			thisCost = 0
			d.trace(t)

		case instr.OpCall:
			if !d.call(t, int(n)) {
				thisCost = 0
			}
		}

		spent += thisCost
	}
	return Rescheduled
}

func (d *Dispatcher) terminate(t *TCB) {
	d.World.died(t, d.Sched)
}

func (d *Dispatcher) output(t *TCB, n uint32) {
	if d.World.Output == nil || n == 0 {
		return
	}
	buf := make([]byte, n)
	b := t.Segment[t.DP]
	for i := range buf {
		buf[i] = b
	}
	d.World.Output.Write(buf)
}

func (d *Dispatcher) input(t *TCB, n uint32) {
	if d.World.Input == nil {
		return
	}
	var b [1]byte
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(d.World.Input, b[:]); err != nil {
			return
		}
		t.Segment[t.DP] = b[0]
	}
}

// up implements `^`: raise the cell, then walk the sleep list once per
// unit raised, waking the oldest waiter (if any) bound to this
// thread's current (segment, dp).
func (d *Dispatcher) up(t *TCB, n uint32) {
	t.Segment[t.DP] += byte(n)
	key := SleepKey{Segment: t.Segment, DP: t.DP}
	for i := uint32(0); i < n; i++ {
		waiter, ok := d.World.Sleep.Wake(key)
		if !ok {
			break
		}
		d.Sched.Requeue(waiter)
	}
}

// down implements `_`: it reports whether t must sleep. The pc
// decrement lets a woken thread re-attempt the same `_` instruction
// rather than resuming past it.
func (d *Dispatcher) down(t *TCB, n uint32) bool {
	if uint32(t.Segment[t.DP]) < n {
		t.PC--
		d.World.Sleep.Sleep(SleepKey{Segment: t.Segment, DP: t.DP}, t)
		return true
	}
	t.Segment[t.DP] -= byte(n)
	return false
}

func (d *Dispatcher) swap(t *TCB) {
	if t.PCB.Parent == nil {
		return
	}
	if t.Segment == t.PCB.Private {
		t.Segment = t.PCB.Parent
	} else {
		t.Segment = t.PCB.Private
	}
}

// call performs a procedure invocation and reports whether it should
// be charged the normal per-instruction cost: false when id is
// unbound, per spec.md §4.4's "if unbound, the instruction costs
// zero".
func (d *Dispatcher) call(t *TCB, id int) bool {
	addr := t.Procs[id]
	if addr < 0 {
		return false
	}
	if t.PC < len(d.World.Code) && d.World.Code[t.PC].Op() == instr.OpReturn {
		t.PC = addr
		return true
	}
	if !t.push(t.PC) {
		d.logError(t, "no mem for call")
		return true
	}
	t.PC = addr
	return true
}

func (d *Dispatcher) logError(t *TCB, msg string) {
	if d.Log != nil {
		d.Log.Error(msg, "pc", t.PC, "pcb", t.PCB.ID)
	}
}

// trace implements `#`: a no-op at DebugOff, a structured log line at
// DebugTrace, and additionally a blocking Starlark REPL exposing
// dispatcher state at DebugInteractive.
func (d *Dispatcher) trace(t *TCB) {
	if d.Debug == DebugOff {
		return
	}
	if d.Log != nil {
		d.Log.Info("trace", "pc", t.PC, "dp", t.DP, "cell", t.Segment[t.DP], "pcb", t.PCB.ID)
	}
	if d.Debug == DebugInteractive && d.Tap != nil {
		d.Tap(context.Background(), "trace", map[string]any{
			"pc":   t.PC,
			"dp":   t.DP,
			"cell": int(t.Segment[t.DP]),
			"pcb":  t.PCB.ID,
		})
	}
}
