// Package dlist implements an intrusive circular doubly linked list, used
// as the connection idle queue: each Node is embedded directly in the
// owning Conn, so moving a connection to the tail on activity or evicting
// it from the head on timeout is O(1) with no separate allocation.
//
// Ported from the precursor project's list.h.
package dlist

// Node is a link in a circular doubly linked list. A Node used as the
// list's sentinel head is never itself a member; every other Node is
// embedded in an owning record.
type Node struct {
	prev, next *Node
}

// Next returns the node following this one in its list. For a sentinel
// head, this is the front (oldest) member.
func (n *Node) Next() *Node { return n.next }

// Init turns node into an empty list (or resets a detached node to point
// only at itself).
func Init(node *Node) {
	node.prev, node.next = node, node
}

// Empty reports whether node (used as a sentinel) has no members.
func Empty(node *Node) bool {
	return node.next == node
}

// Detach removes node from whatever list it is currently linked into.
func Detach(node *Node) {
	prev, next := node.prev, node.next
	prev.next = next
	next.prev = prev
}

// InsertBefore splices rookie into the list immediately before target.
// Inserting before the sentinel head therefore appends at the tail.
func InsertBefore(target, rookie *Node) {
	prev := target.prev
	prev.next = rookie
	rookie.next = target
	rookie.prev = prev
	target.prev = rookie
}
