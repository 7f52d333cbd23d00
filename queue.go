package epiworld

// ActiveQueue is the per-agent "active today / active next day" bitmap that
// limits which agents run their state-update function on a given day.
// An agent is active if it carries a virus still progressing through its
// state machine, a neighbour does, or a global event marked it. Disabling
// the queue (QueuingOff) must produce
// identical results given the same seed and graph, so every mutation here is
// purely a performance lever, never a semantic one.
type ActiveQueue struct {
	current []bool
	next    []bool
	off     bool
}

// NewActiveQueue builds a queue sized for n agents, all active on day 0 (the
// initial step must consider everyone to pick up day-0 seed viruses).
func NewActiveQueue(n int, off bool) *ActiveQueue {
	cur := make([]bool, n)
	nxt := make([]bool, n)
	for i := range cur {
		cur[i] = true
	}
	return &ActiveQueue{current: cur, next: nxt, off: off}
}

// IsActive reports whether agent id runs its update function today.
func (q *ActiveQueue) IsActive(id int) bool {
	if q.off {
		return true
	}
	return q.current[id]
}

// MarkActiveNext flags id (and, typically, its neighbours) to run tomorrow.
func (q *ActiveQueue) MarkActiveNext(id int) {
	if id >= 0 && id < len(q.next) {
		q.next[id] = true
	}
}

// Swap promotes tomorrow's marks to today's and clears the next buffer,
// called once per day after the event bus flush.
func (q *ActiveQueue) Swap() {
	q.current, q.next = q.next, q.current
	for i := range q.next {
		q.next[i] = false
	}
}

// Copy deep-copies queue state, used by Model.Clone.
func (q *ActiveQueue) Copy() *ActiveQueue {
	cur := make([]bool, len(q.current))
	copy(cur, q.current)
	nxt := make([]bool, len(q.next))
	copy(nxt, q.next)
	return &ActiveQueue{current: cur, next: nxt, off: q.off}
}
