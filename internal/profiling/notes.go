package profiling

import (
	"strings"
	"sync"
)

// Notes is a stack of scoped diagnostic notes describing what the render
// thread is doing. It carries context for error reports only.
//
//	defer notes.Push("shadow pass")()
type Notes struct {
	mu    sync.Mutex
	stack []string
}

// Push adds a note and returns the function that pops it.
func (n *Notes) Push(note string) func() {
	if n == nil {
		return func() {}
	}
	n.mu.Lock()
	n.stack = append(n.stack, note)
	depth := len(n.stack)
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		// A recovered panic may have skipped inner pops; truncate to our depth.
		if len(n.stack) >= depth {
			n.stack = n.stack[:depth-1]
		}
		n.mu.Unlock()
	}
}

// Current returns a copy of the stack, outermost first.
func (n *Notes) Current() []string {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.stack...)
}

// String joins the stack with " > ".
func (n *Notes) String() string {
	return strings.Join(n.Current(), " > ")
}

// Reset drops every note. Called at frame boundaries.
func (n *Notes) Reset() {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.stack = n.stack[:0]
	n.mu.Unlock()
}
