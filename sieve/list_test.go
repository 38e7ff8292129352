package sieve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildList links the values in order, so the last one becomes the head.
func buildList(t *testing.T, opt Options, values ...string) (*List[string], map[string]*Node[string]) {
	t.Helper()
	l := New[string](opt)
	nodes := make(map[string]*Node[string], len(values))
	for _, v := range values {
		n := NewNode(v)
		nodes[v] = n
		l.LinkAtHead(n)
	}
	return l, nodes
}

// requireList asserts the full structure on a quiescent list: size, both
// anchors, forward and reverse traversal, and back-pointer symmetry.
func requireList(t *testing.T, l *List[string], headToTail ...string) {
	t.Helper()

	require.Equal(t, len(headToTail), l.Len(), "size")
	if len(headToTail) == 0 {
		require.Nil(t, l.head.Load(), "head of empty list")
		require.Nil(t, l.tail.Load(), "tail of empty list")
		return
	}

	require.NotNil(t, l.head.Load())
	require.NotNil(t, l.tail.Load())

	// Forward: head reaches tail in exactly size hops.
	n := l.head.Load()
	for i, want := range headToTail {
		require.NotNilf(t, n, "forward traversal broke at hop %d", i)
		require.Equal(t, want, n.Value)
		if next := n.next.Load(); next != nil {
			require.Same(t, n, next.prev.Load(), "back-pointer of %q's successor", n.Value)
		}
		n = n.next.Load()
	}
	require.Nil(t, n, "forward traversal overshot the tail")

	// Reverse from the tail.
	n = l.tail.Load()
	for i := len(headToTail) - 1; i >= 0; i-- {
		require.NotNil(t, n)
		require.Equal(t, headToTail[i], n.Value)
		n = n.prev.Load()
	}
	require.Nil(t, n)
}

func TestList_LinkAtHead(t *testing.T) {
	t.Parallel()

	l, _ := buildList(t, Options{})
	requireList(t, l)

	l.LinkAtHead(NewNode("a"))
	requireList(t, l, "a")
	require.Same(t, l.head.Load(), l.tail.Load(), "single node is both head and tail")
	require.Same(t, l.head.Load(), l.hand.Load(), "hand initialised on empty->non-empty")

	l.LinkAtHead(NewNode("b"))
	requireList(t, l, "b", "a")

	l.LinkAtHead(NewNode("c"))
	requireList(t, l, "c", "b", "a")
	require.Equal(t, "a", l.hand.Load().Value, "hand stays at the first node")
}

func TestList_Remove(t *testing.T) {
	t.Parallel()

	l, nodes := buildList(t, Options{}, "a", "b", "c", "d")
	requireList(t, l, "d", "c", "b", "a")

	// Middle.
	l.Remove(nodes["c"])
	requireList(t, l, "d", "b", "a")
	require.Nil(t, nodes["c"].prev.Load())
	require.Nil(t, nodes["c"].next.Load())

	// Removing again is a no-op.
	l.Remove(nodes["c"])
	requireList(t, l, "d", "b", "a")

	// Head and tail.
	l.Remove(nodes["d"])
	requireList(t, l, "b", "a")
	l.Remove(nodes["a"])
	requireList(t, l, "b")

	// Sole node: the list must transition back to empty.
	l.Remove(nodes["b"])
	requireList(t, l)
	require.Nil(t, l.hand.Load())
}

func TestList_Remove_HandRetreats(t *testing.T) {
	t.Parallel()

	l, nodes := buildList(t, Options{}, "a", "b", "c")
	// hand starts at the first-linked node.
	require.Same(t, nodes["a"], l.hand.Load())

	l.Remove(nodes["a"])
	require.Same(t, nodes["b"], l.hand.Load(), "hand retreats to prev")

	// A sweep proceeds correctly from the retreated hand.
	victim := l.GetEvictionCandidate()
	require.NotNil(t, victim)
	require.Equal(t, "b", victim.Value)
	requireList(t, l, "c")
}

func TestList_Replace(t *testing.T) {
	t.Parallel()

	l, nodes := buildList(t, Options{}, "a", "b", "c")
	repl := NewNode("b2")
	require.True(t, l.Replace(nodes["b"], repl))
	requireList(t, l, "c", "b2", "a")
	require.Nil(t, nodes["b"].prev.Load())
	require.Nil(t, nodes["b"].next.Load())

	// Replacing the head, tail, and hand updates the anchors.
	headRepl := NewNode("c2")
	require.True(t, l.Replace(nodes["c"], headRepl))
	require.Same(t, headRepl, l.head.Load())

	require.Same(t, nodes["a"], l.hand.Load())
	tailRepl := NewNode("a2")
	require.True(t, l.Replace(nodes["a"], tailRepl))
	require.Same(t, tailRepl, l.tail.Load())
	require.Same(t, tailRepl, l.hand.Load(), "hand follows a replaced node")
	requireList(t, l, "c2", "b2", "a2")

	// A node that is no longer linked is rejected.
	require.False(t, l.Replace(nodes["b"], NewNode("zombie")))
	requireList(t, l, "c2", "b2", "a2")
}

func TestList_MoveToHead(t *testing.T) {
	t.Parallel()

	l, nodes := buildList(t, Options{}, "a", "b", "c")

	l.MoveToHead(nodes["c"]) // already head
	requireList(t, l, "c", "b", "a")

	l.MoveToHead(nodes["a"]) // tail to head
	requireList(t, l, "a", "c", "b")

	l.MoveToHead(nodes["c"]) // middle to head
	requireList(t, l, "c", "a", "b")
}

func TestList_Linked(t *testing.T) {
	t.Parallel()

	l := New[string](Options{})
	n := NewNode("a")
	require.False(t, l.Linked(n))
	require.False(t, l.Linked(nil))

	l.LinkAtHead(n)
	require.True(t, l.Linked(n), "sole node is linked despite nil links")

	m := NewNode("b")
	l.LinkAtHead(m)
	require.True(t, l.Linked(n))
	require.True(t, l.Linked(m))

	l.Remove(n)
	require.False(t, l.Linked(n))
}

func TestList_UnlinkWithoutMutexPanics(t *testing.T) {
	t.Parallel()

	l, nodes := buildList(t, Options{}, "a", "b")
	require.Panics(t, func() { l.unlink(nodes["a"]) })
}
