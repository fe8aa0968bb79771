package machine

// Scheduler decides which thread runs next. It is constructed once per
// World and closes over it rather than taking World as a parameter on
// every call, since the policy itself is the only thing that varies
// per run (spec.md §4.3).
type Scheduler interface {
	// Next pops the next thread to run, or reports ok=false when no
	// process has a runnable thread (quiescence/deadlock).
	Next() (*TCB, bool)

	// Requeue makes t runnable again: called after a quantum ends
	// without the thread dying or sleeping, and whenever `&`/`%`/`^`
	// hands a brand-new or newly-woken thread back to the scheduler.
	Requeue(t *TCB)

	// Reap is called exactly once per PCB, the moment its last thread
	// dies, to remove it from scheduling and apply infanticide.
	Reap(pcb *PCB)
}

// ProcessFair round-robins over processes: each process gets to run
// one of its own threads before any process is revisited, so one
// process spawning many threads cannot starve the others.
type ProcessFair struct {
	world *World
	// last is the process whose thread is currently running (held out
	// of world.Processes so it is not picked again until it has been
	// rotated to the tail by the next call to Next).
	last *PCB
}

// NewProcessFair returns a process-fair Scheduler over w.
func NewProcessFair(w *World) *ProcessFair {
	return &ProcessFair{world: w}
}

func (s *ProcessFair) Next() (*TCB, bool) {
	w := s.world
	if s.last != nil {
		if s.last.Threads > 0 {
			w.Processes.Push(s.last)
		}
		s.last = nil
	}
	n := w.Processes.Len()
	for i := 0; i < n; i++ {
		pcb := w.Processes.Pop()
		if t := pcb.Ready.Pop(); t != nil {
			s.last = pcb
			return t, true
		}
		w.Processes.Push(pcb)
	}
	return nil, false
}

func (s *ProcessFair) Requeue(t *TCB) {
	t.PCB.Ready.Push(t)
}

func (s *ProcessFair) Reap(pcb *PCB) {
	s.world.Reap(pcb)
}

// ThreadFair round-robins over every ready thread in the run
// regardless of which process it belongs to, giving every thread an
// equal share of turns.
type ThreadFair struct {
	world *World
}

// NewThreadFair returns a thread-fair Scheduler over w.
func NewThreadFair(w *World) *ThreadFair {
	return &ThreadFair{world: w}
}

func (s *ThreadFair) Next() (*TCB, bool) {
	t := s.world.GlobalReady.Pop()
	return t, t != nil
}

func (s *ThreadFair) Requeue(t *TCB) {
	s.world.GlobalReady.Push(t)
}

func (s *ThreadFair) Reap(pcb *PCB) {
	s.world.Reap(pcb)
}
