package machine

import (
	"io"
	"math/rand/v2"

	"github.com/tapeforge/brains/instr"
	"github.com/tapeforge/brains/syncs"
)

// MaxProcesses and MaxThreads bound resource usage so that `%`/`&`
// allocation failure (spec.md §4.4/§4.5) is a reachable, testable path
// rather than a theoretical one: Go's allocator does not fail the way
// a fixed-arena C interpreter's would.
const (
	MaxProcesses = 1 << 16
	MaxThreads   = 1 << 18
)

// SleepKey identifies a semaphore cell a thread is blocked on: its
// current segment together with its data pointer into that segment,
// exactly as spec.md §4.4 defines semaphore identity for `^`/`_`.
type SleepKey struct {
	Segment *Segment
	DP      int
}

// World is the explicit interpreter context for one compiled file: the
// single struct that replaces the module-level globals spec.md §9
// warns against. driver.Run constructs one per input file and discards
// it at end of file.
type World struct {
	Code []instr.Word

	// System is the one shared memory segment every big-bang process's
	// `~` swaps to, per spec.md's "per-run, not per-process" resolution.
	System Segment

	// Processes is the live PCB list, ordered by creation and rotated
	// by the process-fair scheduler. Under thread-fair scheduling it is
	// not consulted for scheduling decisions, only for the infanticide
	// parent-lookup walk.
	Processes PCBQueue

	// GlobalReady is the single ready queue the thread-fair scheduler
	// draws from. Unused under process-fair scheduling.
	GlobalReady TCBQueue

	Sleep *syncs.WaitList[SleepKey, *TCB]
	Dead  []*PCB

	Output io.Writer
	Input  io.Reader

	Infanticide bool
	Rand        *rand.Rand
	Trace       io.Writer

	liveThreads int
	nextPID     int
}

// NewWorld builds a fresh interpreter context for one compiled file.
func NewWorld(code []instr.Word, infanticide bool, seed uint64, input io.Reader, output, trace io.Writer) *World {
	return &World{
		Code:        code,
		Sleep:       syncs.NewWaitList[SleepKey, *TCB](),
		Output:      output,
		Input:       input,
		Infanticide: infanticide,
		Rand:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Trace:       trace,
	}
}

// BigBang starts a new process at pc, sharing the run's system memory
// as its `~` parent, and returns its single thread. The caller (the
// driver, for each compilation unit) still has to hand the thread to
// the scheduler.
func (w *World) BigBang(pc int) *TCB {
	w.nextPID++
	pcb := &PCB{ID: w.nextPID, Private: new(Segment), Parent: &w.System, Threads: 1}
	w.Processes.Push(pcb)
	w.liveThreads++
	t := newTCB(pcb, pcb.Private)
	t.PC = pc
	return t
}

// Spawn implements `&`: a new thread in from's own process, sharing its
// PCB and current segment, starting one cell to the right of from's
// data pointer. It reports whether the allocation succeeded; on
// failure from's memory is left exactly as spec.md §4.5 prescribes
// (current cell cleared, next cell rolled back to 0).
func (w *World) Spawn(from *TCB, sched Scheduler) bool {
	from.Segment[from.DP] = 0
	nextDP := (from.DP + 1) & DMASK
	from.Segment[nextDP] = 1
	if w.liveThreads >= MaxThreads {
		from.Segment[nextDP] = 0
		return false
	}
	nt := newTCB(from.PCB, from.Segment)
	nt.DP = nextDP
	nt.Procs = from.Procs
	nt.PC = from.PC
	nt.Stack = from.Stack
	nt.SP = from.SP
	from.PCB.Threads++
	w.liveThreads++
	sched.Requeue(nt)
	return true
}

// Fork implements `%`: a new process whose private memory is a
// byte-for-byte copy of from's current segment, with one thread
// continuing right after the fork point. It reports whether the
// allocation succeeded, with the same rollback-on-failure semantics as
// Spawn.
func (w *World) Fork(from *TCB, sched Scheduler) bool {
	from.Segment[from.DP] = 0
	nextDP := (from.DP + 1) & DMASK
	from.Segment[nextDP] = 1
	if w.liveThreads >= MaxThreads || w.Processes.Len() >= MaxProcesses {
		from.Segment[nextDP] = 0
		return false
	}
	w.nextPID++
	child := &PCB{ID: w.nextPID, Private: new(Segment), Parent: from.PCB.Private, Threads: 1}
	*child.Private = *from.Segment
	w.Processes.Push(child)
	nt := newTCB(child, child.Private)
	nt.DP = nextDP
	nt.Procs = from.Procs
	nt.PC = from.PC
	nt.Stack = from.Stack
	nt.SP = from.SP
	w.liveThreads++
	sched.Requeue(nt)
	return true
}

// died records that t has terminated: decrements its process's thread
// count and, if that was the last thread, reaps the process.
func (w *World) died(t *TCB, sched Scheduler) {
	w.liveThreads--
	t.PCB.Threads--
	if t.PCB.Threads == 0 {
		sched.Reap(t.PCB)
	}
}

// Reap removes pcb from the live process list and, per w.Infanticide,
// either recursively destroys every process whose `~` parent is pcb's
// private memory, or defers pcb onto the dead-process list for
// children to keep addressing via `~`.
func (w *World) Reap(pcb *PCB) {
	w.Processes.RemoveWhere(func(p *PCB) bool { return p == pcb })
	if w.Infanticide {
		w.killDescendants(pcb)
	} else {
		w.Dead = append(w.Dead, pcb)
	}
}

func (w *World) killDescendants(pcb *PCB) {
	var children []*PCB
	w.Processes.Each(func(p *PCB) {
		if p.Parent == pcb.Private {
			children = append(children, p)
		}
	})
	for _, child := range children {
		w.purgeThreads(child)
		w.killDescendants(child)
		w.Processes.RemoveWhere(func(p *PCB) bool { return p == child })
	}
}

// purgeThreads drops every thread belonging to pcb out of whichever
// list it is sitting in, for a process caught up in an infanticide
// sweep: its own ready queue, the thread-fair global ready queue, and
// the sleep list.
func (w *World) purgeThreads(pcb *PCB) {
	var live int
	pcb.Ready.Each(func(*TCB) { live++ })
	pcb.Ready = TCBQueue{}
	w.GlobalReady.RemoveWhere(func(t *TCB) bool {
		if t.PCB == pcb {
			live++
			return true
		}
		return false
	})
	w.Sleep.Purge(func(t *TCB) bool {
		if t.PCB == pcb {
			live++
			return true
		}
		return false
	})
	w.liveThreads -= live
	pcb.Threads = 0
}
