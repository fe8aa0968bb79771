package machine

// TCBQueue is a singly linked FIFO of threads, intrusive on TCB.next so
// that enqueuing never allocates. A TCB is a member of at most one
// queue at a time.
type TCBQueue struct {
	head, tail *TCB
	n          int
}

// Push appends t to the tail.
func (q *TCBQueue) Push(t *TCB) {
	t.next = nil
	if q.tail == nil {
		q.head, q.tail = t, t
	} else {
		q.tail.next = t
		q.tail = t
	}
	q.n++
}

// Pop removes and returns the head, or nil if q is empty.
func (q *TCBQueue) Pop() *TCB {
	if q.head == nil {
		return nil
	}
	t := q.head
	q.head = t.next
	if q.head == nil {
		q.tail = nil
	}
	t.next = nil
	q.n--
	return t
}

// Len reports the number of queued threads.
func (q *TCBQueue) Len() int { return q.n }

// Each calls fn for every queued thread, head to tail, without
// dequeuing any of them.
func (q *TCBQueue) Each(fn func(*TCB)) {
	for t := q.head; t != nil; t = t.next {
		fn(t)
	}
}

// RemoveWhere drops every queued thread for which match returns true,
// preserving the relative order of the rest.
func (q *TCBQueue) RemoveWhere(match func(*TCB) bool) {
	var kept TCBQueue
	for t := q.head; t != nil; {
		next := t.next
		t.next = nil
		if !match(t) {
			kept.Push(t)
		}
		t = next
	}
	*q = kept
}

// PCBQueue is the live-process list: a singly linked FIFO of PCBs,
// intrusive on PCB.next.
type PCBQueue struct {
	head, tail *PCB
	n          int
}

// Push appends pcb to the tail.
func (q *PCBQueue) Push(pcb *PCB) {
	pcb.next = nil
	if q.tail == nil {
		q.head, q.tail = pcb, pcb
	} else {
		q.tail.next = pcb
		q.tail = pcb
	}
	q.n++
}

// Pop removes and returns the head, or nil if q is empty.
func (q *PCBQueue) Pop() *PCB {
	if q.head == nil {
		return nil
	}
	pcb := q.head
	q.head = pcb.next
	if q.head == nil {
		q.tail = nil
	}
	pcb.next = nil
	q.n--
	return pcb
}

// Len reports the number of live processes.
func (q *PCBQueue) Len() int { return q.n }

// Each calls fn for every live process, head to tail.
func (q *PCBQueue) Each(fn func(*PCB)) {
	for pcb := q.head; pcb != nil; pcb = pcb.next {
		fn(pcb)
	}
}

// RemoveWhere drops every process for which match returns true,
// preserving the relative order of the rest.
func (q *PCBQueue) RemoveWhere(match func(*PCB) bool) {
	var kept PCBQueue
	for pcb := q.head; pcb != nil; {
		next := pcb.next
		pcb.next = nil
		if !match(pcb) {
			kept.Push(pcb)
		}
		pcb = next
	}
	*q = kept
}
