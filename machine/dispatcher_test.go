package machine

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/tapeforge/brains/instr"
)

func TestSemaphoreFIFOWakeOrder(t *testing.T) {
	w := NewWorld(nil, true, 1, nil, nil, nil)
	sched := NewProcessFair(w)
	disp := NewDispatcher(w, sched, DebugOff, nil, nil)
	pcb := newTestPCB(w)

	a := newTCB(pcb, pcb.Private)
	b := newTCB(pcb, pcb.Private)
	key := SleepKey{Segment: pcb.Private, DP: 0}
	w.Sleep.Sleep(key, a)
	w.Sleep.Sleep(key, b)

	waker := newTCB(pcb, pcb.Private)
	disp.up(waker, 1)

	woken := pcb.Ready.Pop()
	if woken != a {
		t.Fatalf("expected a woken first (FIFO), got %v", woken)
	}
	if w.Sleep.Len(key) != 1 {
		t.Fatalf("expected b still waiting, got %d waiters", w.Sleep.Len(key))
	}
}

func TestDownSleepsAndRewindsPC(t *testing.T) {
	code := []instr.Word{
		instr.Make(instr.OpDown, 1),
		instr.Make(instr.OpSeparate, 0),
	}
	w := NewWorld(code, true, 1, nil, nil, nil)
	sched := NewProcessFair(w)
	disp := NewDispatcher(w, sched, DebugOff, nil, nil)
	pcb := newTestPCB(w)
	th := newTCB(pcb, pcb.Private)

	if out := disp.Run(th, 0); out != Slept {
		t.Fatalf("got %v, want Slept", out)
	}
	if th.PC != 0 {
		t.Fatalf("got pc %d, want 0 (rewound to re-attempt the down)", th.PC)
	}

	// waking it with exactly enough raises the cell to 1, letting the
	// re-attempted down succeed and fall through to OpSeparate.
	disp.up(th, 1)
	if out := disp.Run(th, 0); out != Died {
		t.Fatalf("got %v, want Died", out)
	}
}

func TestCallTailCallDoesNotGrowStack(t *testing.T) {
	id := instr.ProcID('A')
	code := []instr.Word{
		instr.Make(instr.OpCall, uint32(id)), // 0: call A in tail position
		instr.Make(instr.OpReturn, 0),        // 1
		instr.Make(instr.OpPlus, 1),          // 2: A's body
		instr.Make(instr.OpReturn, 0),        // 3: A returns with an empty stack
	}
	w := NewWorld(code, true, 1, nil, nil, nil)
	sched := NewProcessFair(w)
	disp := NewDispatcher(w, sched, DebugOff, nil, nil)
	pcb := newTestPCB(w)
	th := newTCB(pcb, pcb.Private)
	th.Procs[id] = 2

	out := disp.Run(th, 0)
	if out != Died {
		t.Fatalf("got %v, want Died", out)
	}
	if th.Segment[0] != 1 {
		t.Fatalf("got cell %d, want 1", th.Segment[0])
	}
	if th.SP != StackSize {
		t.Fatalf("got sp %d, want %d: a tail call must not push", th.SP, StackSize)
	}
}

func TestCallStackFullEmitsErrorAndDoesNotCall(t *testing.T) {
	id := instr.ProcID('A')
	code := []instr.Word{
		instr.Make(instr.OpCall, uint32(id)), // 0: call, but the stack is full
		instr.Make(instr.OpPlus, 9),          // 1: execution falls through here
		instr.Make(instr.OpSeparate, 0),      // 2
		instr.Make(instr.OpReturn, 0),        // 3: A's body, never reached
	}
	w := NewWorld(code, true, 1, nil, nil, nil)
	sched := NewProcessFair(w)
	var logBuf bytes.Buffer
	disp := NewDispatcher(w, sched, DebugOff, slog.New(slog.NewTextHandler(&logBuf, nil)), nil)
	pcb := newTestPCB(w)
	th := newTCB(pcb, pcb.Private)
	th.Procs[id] = 3
	th.SP = 0

	out := disp.Run(th, 0)
	if out != Died {
		t.Fatalf("got %v, want Died", out)
	}
	if th.Segment[0] != 9 {
		t.Fatalf("got cell %d, want 9: the refused call must not divert control flow", th.Segment[0])
	}
	if !strings.Contains(logBuf.String(), "no mem for call") {
		t.Fatalf("expected a \"no mem for call\" error, got log %q", logBuf.String())
	}
}

func TestCallUnboundCostsZero(t *testing.T) {
	code := []instr.Word{
		instr.Make(instr.OpCall, uint32(instr.ProcID('A'))), // unbound
		instr.Make(instr.OpSeparate, 0),
	}
	w := NewWorld(code, true, 1, nil, nil, nil)
	sched := NewProcessFair(w)
	disp := NewDispatcher(w, sched, DebugOff, nil, nil)
	pcb := newTestPCB(w)
	th := newTCB(pcb, pcb.Private)

	// a quantum of exactly 1 must still finish both instructions, since
	// the unbound call is free.
	out := disp.Run(th, 1)
	if out != Died {
		t.Fatalf("got %v, want Died (unbound call must cost nothing)", out)
	}
}

func TestSetCostAppliesToSubsequentInstructionsOnly(t *testing.T) {
	code := []instr.Word{
		instr.Make(instr.OpSetCost, 5), // costs 1 (the old default)
		instr.Make(instr.OpPlus, 1),    // costs 5 from here on
		instr.Make(instr.OpPlus, 1),    // would need a 2nd quantum unit; budget stops here
	}
	w := NewWorld(code, true, 1, nil, nil, nil)
	sched := NewProcessFair(w)
	disp := NewDispatcher(w, sched, DebugOff, nil, nil)
	pcb := newTestPCB(w)
	th := newTCB(pcb, pcb.Private)

	// budget 6: 1 (the '=') + 5 (one '+') fits; a second '+' at cost 5
	// would need 11, so it must not run this quantum.
	out := disp.Run(th, 6)
	if out != Rescheduled {
		t.Fatalf("got %v, want Rescheduled", out)
	}
	if th.PC != 2 {
		t.Fatalf("got pc %d, want 2 (only one '+' should have run)", th.PC)
	}
	if th.Segment[0] != 1 {
		t.Fatalf("got cell %d, want 1", th.Segment[0])
	}
}

func TestSwapIsNoOpWithoutParent(t *testing.T) {
	w := NewWorld(nil, true, 1, nil, nil, nil)
	sched := NewProcessFair(w)
	disp := NewDispatcher(w, sched, DebugOff, nil, nil)
	pcb := newTestPCB(w)
	th := newTCB(pcb, pcb.Private)

	disp.swap(th)
	if th.Segment != pcb.Private {
		t.Fatal("swap without a parent memory reference must be a no-op")
	}
}

func TestSwapTogglesBetweenPrivateAndParent(t *testing.T) {
	w := NewWorld(nil, true, 1, nil, nil, nil)
	sched := NewProcessFair(w)
	disp := NewDispatcher(w, sched, DebugOff, nil, nil)
	pcb := newTestPCB(w)
	pcb.Parent = &w.System
	th := newTCB(pcb, pcb.Private)

	disp.swap(th)
	if th.Segment != pcb.Parent {
		t.Fatal("expected swap to switch to parent memory")
	}
	disp.swap(th)
	if th.Segment != pcb.Private {
		t.Fatal("expected swap to switch back to private memory")
	}
}
