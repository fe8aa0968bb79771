package machine

import "testing"

func TestSpawnBookkeeping(t *testing.T) {
	w := NewWorld(nil, true, 1, nil, nil, nil)
	sched := NewProcessFair(w)
	pcb := newTestPCB(w)

	from := newTCB(pcb, pcb.Private)
	from.DP = 5
	from.Segment[5] = 9

	if !w.Spawn(from, sched) {
		t.Fatal("expected spawn to succeed")
	}
	if pcb.Threads != 2 {
		t.Fatalf("got %d threads, want 2", pcb.Threads)
	}
	if from.Segment[5] != 0 {
		t.Fatal("current cell must be cleared")
	}
	if from.Segment[6] != 1 {
		t.Fatal("next cell must be set to 1")
	}
	child := pcb.Ready.Pop()
	if child == nil {
		t.Fatal("expected the new thread to be handed to the scheduler")
	}
	if child.PCB != pcb || child.Segment != from.Segment || child.DP != 6 {
		t.Fatalf("child mis-set up: pcb=%v seg-shared=%v dp=%d", child.PCB == pcb, child.Segment == from.Segment, child.DP)
	}
}

func TestSpawnAllocationFailureRollsBack(t *testing.T) {
	w := NewWorld(nil, true, 1, nil, nil, nil)
	sched := NewProcessFair(w)
	w.liveThreads = MaxThreads
	pcb := newTestPCB(w)

	from := newTCB(pcb, pcb.Private)
	from.DP = 5

	if w.Spawn(from, sched) {
		t.Fatal("expected spawn to fail once MaxThreads is reached")
	}
	if from.Segment[6] != 0 {
		t.Fatal("next cell must be rolled back to 0 on failure")
	}
	if pcb.Threads != 1 {
		t.Fatal("thread count must not change on a failed spawn")
	}
}

func TestForkCopiesMemoryAndSetsParent(t *testing.T) {
	w := NewWorld(nil, true, 1, nil, nil, nil)
	sched := NewProcessFair(w)
	parent := newTestPCB(w)

	from := newTCB(parent, parent.Private)
	from.DP = 10
	from.Segment[20] = 42

	if !w.Fork(from, sched) {
		t.Fatal("expected fork to succeed")
	}
	if w.Processes.Len() != 2 {
		t.Fatalf("got %d live processes, want 2", w.Processes.Len())
	}
	var child *PCB
	w.Processes.Each(func(p *PCB) {
		if p != parent {
			child = p
		}
	})
	if child == nil {
		t.Fatal("expected a child process")
	}
	if child.Parent != parent.Private {
		t.Fatal("child's parent reference must be the forking PCB's own private memory")
	}
	if child.Private[20] != 42 {
		t.Fatal("child memory must start as a copy of the forking thread's current segment")
	}
	parent.Private[20] = 99
	if child.Private[20] != 42 {
		t.Fatal("fork must copy, not alias, memory")
	}
}

func TestForkAllocationFailureRollsBack(t *testing.T) {
	w := NewWorld(nil, true, 1, nil, nil, nil)
	sched := NewProcessFair(w)
	w.liveThreads = MaxThreads
	parent := newTestPCB(w)
	from := newTCB(parent, parent.Private)
	from.DP = 1

	if w.Fork(from, sched) {
		t.Fatal("expected fork to fail once MaxThreads is reached")
	}
	if from.Segment[2] != 0 {
		t.Fatal("next cell must be rolled back to 0 on failure")
	}
	if w.Processes.Len() != 1 {
		t.Fatal("no child process must be created on failure")
	}
}

func TestInfanticideReapsWholeDescendantTree(t *testing.T) {
	w := NewWorld(nil, true, 1, nil, nil, nil)
	sched := NewProcessFair(w)

	root := w.BigBang(0)

	if !w.Fork(root, sched) {
		t.Fatal("fork failed")
	}
	var child *PCB
	w.Processes.Each(func(p *PCB) {
		if p != root.PCB {
			child = p
		}
	})
	if child == nil {
		t.Fatal("expected a forked child process")
	}
	var childThread *TCB
	child.Ready.Each(func(th *TCB) { childThread = th })
	if childThread == nil {
		t.Fatal("expected the child's thread to be ready")
	}

	if !w.Fork(childThread, sched) {
		t.Fatal("grandchild fork failed")
	}
	if w.Processes.Len() != 3 {
		t.Fatalf("got %d live processes, want 3", w.Processes.Len())
	}

	w.died(root, sched)

	if w.Processes.Len() != 0 {
		t.Fatalf("got %d live processes after infanticide, want 0", w.Processes.Len())
	}
}

func TestNoInfanticideDefersToDeadListAndSparesChildren(t *testing.T) {
	w := NewWorld(nil, false, 1, nil, nil, nil)
	sched := NewProcessFair(w)

	root := w.BigBang(0)
	if !w.Fork(root, sched) {
		t.Fatal("fork failed")
	}

	w.died(root, sched)

	if len(w.Dead) != 1 || w.Dead[0] != root.PCB {
		t.Fatalf("expected root's PCB on the dead list, got %v", w.Dead)
	}
	if w.Processes.Len() != 1 {
		t.Fatalf("got %d live processes, want 1 (the surviving child)", w.Processes.Len())
	}
}
