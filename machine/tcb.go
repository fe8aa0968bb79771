package machine

import "github.com/tapeforge/brains/instr"

// StackSize is the call-stack depth available to one thread: 1024
// return addresses, per spec.md §3.
const StackSize = 1024

// TCB is a thread: one instruction pointer and data pointer moving
// through a segment, with its own procedure table and call stack.
// Threads spawned with `&` share a PCB; threads created by `%` get a
// fresh one.
type TCB struct {
	PCB *PCB

	// Procs maps a bound procedure id to its body's instruction index.
	// -1 means unbound.
	Procs [instr.NumProcs]int

	PC int
	DP int

	// Segment is whichever memory this thread currently addresses:
	// PCB.Private, or PCB.Parent after a `~`.
	Segment *Segment

	// Stack is the call-stack storage; SP starts at StackSize and
	// decreases on push, increases on pop. SP == 0 on a would-be push
	// is overflow; SP == StackSize on a pop is underflow.
	Stack [StackSize]int
	SP    int

	next *TCB
}

func newTCB(pcb *PCB, seg *Segment) *TCB {
	t := &TCB{PCB: pcb, Segment: seg, SP: StackSize}
	for i := range t.Procs {
		t.Procs[i] = -1
	}
	return t
}

// push records a return address. It reports false on call-stack
// overflow, leaving the stack untouched.
func (t *TCB) push(addr int) bool {
	if t.SP == 0 {
		return false
	}
	t.SP--
	t.Stack[t.SP] = addr
	return true
}

// pop removes and returns the most recent return address. It reports
// false on call-stack underflow.
func (t *TCB) pop() (int, bool) {
	if t.SP == StackSize {
		return 0, false
	}
	addr := t.Stack[t.SP]
	t.SP++
	return addr, true
}
