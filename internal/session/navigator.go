package session

import (
	"fmt"

	"github.com/edulearn/edulearn/internal/domain"
)

// Navigator tracks the current question index, 0 <= current < total
type Navigator struct {
	current int
	total   int
}

// NewNavigator creates a navigator positioned on the first of total questions
func NewNavigator(total int) *Navigator {
	return &Navigator{total: total}
}

// Current returns the zero-based question index
func (n *Navigator) Current() int { return n.current }

// Total returns the number of questions
func (n *Navigator) Total() int { return n.total }

// HasNext reports whether Next would move
func (n *Navigator) HasNext() bool { return n.current < n.total-1 }

// HasPrevious reports whether Previous would move
func (n *Navigator) HasPrevious() bool { return n.current > 0 }

// IsLast reports whether the last question is shown
func (n *Navigator) IsLast() bool { return n.current == n.total-1 }

// Next moves forward one question; no-op on the last one
func (n *Navigator) Next() {
	if n.HasNext() {
		n.current++
	}
}

// Previous moves back one question; no-op on the first one
func (n *Navigator) Previous() {
	if n.HasPrevious() {
		n.current--
	}
}

// JumpTo moves to any valid index
func (n *Navigator) JumpTo(index int) error {
	if index < 0 || index >= n.total {
		return fmt.Errorf("%w: %d not in [0, %d)", domain.ErrIndexOutOfRange, index, n.total)
	}
	n.current = index
	return nil
}

// Progress is the position as a whole percentage, counting the current
// question as reached
func (n *Navigator) Progress() int {
	if n.total == 0 {
		return 0
	}
	return (200*(n.current+1) + n.total) / (2 * n.total)
}
