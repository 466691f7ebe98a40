package trigger

import "fmt"

// Op is the operation kind recorded in a frame identity.
type Op string

// Operation kinds.
const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Identity is the re-entrancy guard key: one in-flight trigger fire per
// (table, operation, record identity) on a chain. For inserts without an
// assigned primary key the pipeline substitutes a synthetic pending
// identity for the key part.
type Identity struct {
	Table string
	Op    Op
	Key   string
}

// PendingKey builds the synthetic key part for an insert whose primary
// key is not yet assigned.
func PendingKey(token string) string { return "pending:" + token }

// KeyString normalizes a primary key value into the identity key part.
func KeyString(key any) string { return fmt.Sprintf("%v", key) }

// Frame is one active trigger fire on a chain.
type Frame struct {
	stack *Stack
	id    Identity
	done  bool
}

// Stack tracks the trigger frames of one call chain. It is confined to
// the chain and needs no synchronization; sibling chains each own their
// own Stack, so concurrent operations on the same record identity are
// not coalesced here (that is the transaction's concern).
type Stack struct {
	frames []*Frame
	active map[Identity]bool
}

// NewStack creates an empty per-chain stack.
func NewStack() *Stack {
	return &Stack{active: make(map[Identity]bool)}
}

// Push records a new frame for id. When an identical frame is already
// active on this chain, Push returns (nil, false): the caller must skip
// the trigger phases for the nested occurrence instead of re-firing.
func (s *Stack) Push(id Identity) (*Frame, bool) {
	if s.active[id] {
		return nil, false
	}
	f := &Frame{stack: s, id: id}
	s.frames = append(s.frames, f)
	s.active[id] = true
	return f, true
}

// Pop releases the frame. It must run on every exit path, success or
// failure; popping is idempotent.
func (f *Frame) Pop() {
	if f == nil || f.done {
		return
	}
	f.done = true
	delete(f.stack.active, f.id)
	for i := len(f.stack.frames) - 1; i >= 0; i-- {
		if f.stack.frames[i] == f {
			f.stack.frames = append(f.stack.frames[:i], f.stack.frames[i+1:]...)
			break
		}
	}
}

// Depth returns the number of active frames on the chain.
func (s *Stack) Depth() int { return len(s.frames) }

// Active reports whether a frame for id is currently on the chain.
func (s *Stack) Active(id Identity) bool { return s.active[id] }
