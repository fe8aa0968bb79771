// Package machine implements the data model, scheduler, and dispatcher
// for the tape-machine: processes, threads, segmented memory, and the
// opcode interpreter loop.
package machine

// DMEM is the size of a data memory segment: 65536 bytes, byte
// addressed, wrapping on overflow.
const DMEM = 65536

// DMASK wraps a data pointer into [0, DMEM).
const DMASK = DMEM - 1

// Segment is one 64KB data memory: a process's private memory, or the
// single system memory shared by every big-bang process in a run.
type Segment [DMEM]byte
