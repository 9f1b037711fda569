// Package result holds the immutable tree produced by a comparison run.
package result

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/sdejongh/semcmp/pkg/models"
)

// RootPath is the path Flatten reports for the root node
const RootPath = "."

// Node is one compared pair. Nodes are built bottom-up and never modified
// after construction.
type Node struct {
	name      string
	leftKind  models.Kind
	rightKind models.Kind
	verdict   models.Verdict
	children  []*Node
}

// NewLeaf creates a node without children
func NewLeaf(name string, leftKind, rightKind models.Kind, verdict models.Verdict) *Node {
	return &Node{
		name:      name,
		leftKind:  leftKind,
		rightKind: rightKind,
		verdict:   verdict,
	}
}

// NewComposite creates a node from its compared children. Children are
// sorted by name. The verdict is Equal when own and every child are Equal
// and an aggregate difference naming at most maxFailures failing children
// otherwise (0 names all of them). A non-equal own verdict, such as a
// metadata mismatch on the container itself, takes precedence and keeps
// the failing children of the aggregate.
func NewComposite(name string, kind models.Kind, own models.Verdict, children []*Node, maxFailures int) *Node {
	sorted := slices.Clone(children)
	slices.SortFunc(sorted, func(a, b *Node) int { return strings.Compare(a.name, b.name) })

	v := aggregate(sorted, maxFailures)
	if !own.IsEqual() {
		if !v.IsEqual() {
			own.Failing = v.Failing
			own.Detail += "; " + v.Detail
		}
		v = own
	}

	return &Node{
		name:      name,
		leftKind:  kind,
		rightKind: kind,
		verdict:   v,
		children:  sorted,
	}
}

func aggregate(children []*Node, maxFailures int) models.Verdict {
	var failing []string
	differ, errs := 0, 0
	for _, c := range children {
		switch c.verdict.Outcome {
		case models.OutcomeEqual:
			continue
		case models.OutcomeError:
			errs++
		default:
			differ++
		}
		if maxFailures == 0 || len(failing) < maxFailures {
			failing = append(failing, c.name)
		}
	}

	if differ+errs == 0 {
		return models.Equal("")
	}

	v := models.Unequal(models.ReasonAggregate, "%d of %d children differ", differ+errs, len(children))
	if errs > 0 {
		v.Detail += fmt.Sprintf(", %d inconclusive", errs)
	}
	v.Failing = failing
	return v
}

// Name returns the node's name within its parent
func (n *Node) Name() string { return n.name }

// LeftKind returns the classified kind of the left entry
func (n *Node) LeftKind() models.Kind { return n.leftKind }

// RightKind returns the classified kind of the right entry
func (n *Node) RightKind() models.Kind { return n.rightKind }

// Verdict returns the node's verdict
func (n *Node) Verdict() models.Verdict { return n.verdict }

// Len returns the number of children
func (n *Node) Len() int { return len(n.children) }

// Child returns the i-th child in name order
func (n *Node) Child(i int) *Node { return n.children[i] }

// Children iterates over the children in name order
func (n *Node) Children() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, c := range n.children {
			if !yield(c) {
				return
			}
		}
	}
}

// Flatten walks the tree depth-first in pre-order, yielding each node's
// slash separated path and verdict. The root is reported as ".". Every
// call starts a fresh walk.
func (n *Node) Flatten() iter.Seq2[string, models.Verdict] {
	return func(yield func(string, models.Verdict) bool) {
		for p, node := range n.Nodes() {
			if !yield(p, node.verdict) {
				return
			}
		}
	}
}

// Nodes walks the tree in the same order as Flatten, yielding the nodes
func (n *Node) Nodes() iter.Seq2[string, *Node] {
	return func(yield func(string, *Node) bool) {
		if !yield(RootPath, n) {
			return
		}
		n.walk("", yield)
	}
}

func (n *Node) walk(prefix string, yield func(string, *Node) bool) bool {
	for _, c := range n.children {
		p := c.name
		if prefix != "" {
			p = prefix + "/" + c.name
		}
		if !yield(p, c) {
			return false
		}
		if !c.walk(p, yield) {
			return false
		}
	}
	return true
}

// Find returns the node at a path produced by Flatten, or nil. Member
// names may themselves contain slashes.
func (n *Node) Find(path string) *Node {
	if path == RootPath || path == "" {
		return n
	}
	for _, c := range n.children {
		switch {
		case path == c.name:
			return c
		case strings.HasPrefix(path, c.name+"/"):
			if found := c.Find(path[len(c.name)+1:]); found != nil {
				return found
			}
		}
	}
	return nil
}

// IsLeaf reports whether the node has no children
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// HasErrors reports whether any node in the tree is inconclusive
func (n *Node) HasErrors() bool {
	if n.verdict.IsError() {
		return true
	}
	for _, c := range n.children {
		if c.HasErrors() {
			return true
		}
	}
	return false
}

// Stats counts node outcomes over the whole tree
func (n *Node) Stats() models.Statistics {
	var s models.Statistics
	n.count(&s)
	return s
}

func (n *Node) count(s *models.Statistics) {
	s.Compared++
	switch n.verdict.Outcome {
	case models.OutcomeEqual:
		s.Equal++
	case models.OutcomeError:
		s.Errors++
	default:
		s.Unequal++
	}
	if n.IsLeaf() {
		switch n.verdict.Outcome {
		case models.OutcomeError:
			s.LeafErrors++
		case models.OutcomeUnequal:
			s.LeafUnequal++
		}
	}
	for _, c := range n.children {
		c.count(s)
	}
}

// Status maps the tree to the overall run status
func (n *Node) Status() models.Status {
	switch {
	case n.HasErrors():
		return models.StatusError
	case n.verdict.IsEqual():
		return models.StatusEqual
	default:
		return models.StatusUnequal
	}
}

// Mirror returns the tree as it would be produced with both sides swapped
func (n *Node) Mirror() *Node {
	m := &Node{
		name:      n.name,
		leftKind:  n.rightKind,
		rightKind: n.leftKind,
		verdict:   n.verdict.Mirror(),
	}
	if len(n.children) > 0 {
		m.children = make([]*Node, len(n.children))
		for i, c := range n.children {
			m.children[i] = c.Mirror()
		}
	}
	return m
}
