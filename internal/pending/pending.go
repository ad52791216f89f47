// Package pending holds mutations deferred until the end of a cache session.
package pending

// Op is a queued mutation. The only implementations are Put and Delete.
type Op interface {
	CanonicalName() string
	GroupName() string
	isOp()
}

// Put upserts Value under Name with an expiry of write time + ExpiresOffset.
type Put struct {
	Name          string
	Group         string
	Key           string
	Value         []byte
	ExpiresOffset int64
}

// Delete removes Name.
type Delete struct {
	Name  string
	Group string
	Key   string
}

func (p Put) CanonicalName() string    { return p.Name }
func (p Put) GroupName() string        { return p.Group }
func (Put) isOp()                      {}
func (d Delete) CanonicalName() string { return d.Name }
func (d Delete) GroupName() string     { return d.Group }
func (Delete) isOp()                   {}

// Queue is a FIFO of ops. A newer op for a name supersedes the older one,
// so replaying the queue writes each name at most once while keeping the
// order of the surviving ops.
type Queue struct {
	ops   []Op
	last  map[string]int
	live  int
	bytes int64
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{last: make(map[string]int)}
}

// Push appends op, superseding any queued op for the same name.
func (q *Queue) Push(op Op) {
	name := op.CanonicalName()
	if i, ok := q.last[name]; ok {
		q.bytes -= opSize(q.ops[i])
		q.ops[i] = nil
		q.live--
	}
	q.last[name] = len(q.ops)
	q.ops = append(q.ops, op)
	q.live++
	q.bytes += opSize(op)
}

// Len returns the number of ops that will be replayed.
func (q *Queue) Len() int { return q.live }

// Bytes returns the approximate payload size of the live ops.
func (q *Queue) Bytes() int64 { return q.bytes }

// Ops returns the live ops in the order they were issued.
func (q *Queue) Ops() []Op {
	out := make([]Op, 0, q.live)
	for _, op := range q.ops {
		if op != nil {
			out = append(out, op)
		}
	}
	return out
}

// Lookup returns the queued op for name, if any.
func (q *Queue) Lookup(name string) (Op, bool) {
	i, ok := q.last[name]
	if !ok {
		return nil, false
	}
	return q.ops[i], true
}

// DropGroup discards every queued op of group and returns how many were dropped.
func (q *Queue) DropGroup(group string) int {
	dropped := 0
	for i, op := range q.ops {
		if op == nil || op.GroupName() != group {
			continue
		}
		delete(q.last, op.CanonicalName())
		q.bytes -= opSize(op)
		q.ops[i] = nil
		q.live--
		dropped++
	}
	return dropped
}

// Reset empties the queue.
func (q *Queue) Reset() {
	q.ops = nil
	q.last = make(map[string]int)
	q.live = 0
	q.bytes = 0
}

func opSize(op Op) int64 {
	switch o := op.(type) {
	case Put:
		return int64(len(o.Name) + len(o.Value))
	case Delete:
		return int64(len(o.Name))
	}
	return 0
}
