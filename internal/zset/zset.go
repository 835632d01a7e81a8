// Package zset implements a sorted set: members ordered by a (score, name)
// pair, with O(log n) rank navigation and O(1) average lookup by name.
//
// It composes internal/avl (ordered by score, then name, then name length)
// with internal/hashtable (keyed by name) over the same node objects, the
// same double-indexing the precursor project's zset.cpp uses — a skiplist
// would give the hash-index half for free but not the O(log n) rank
// navigation ZQUERY's offset needs (see spec's design notes).
package zset

import "bytes"

// node is a single member: one AVL tree node ordered by (score, name) and
// one hash-table node keyed by name, sharing the same allocation.
type node struct {
	tree  avlNode
	hnode hashNode
	score float64
	name  []byte
}

func newNode(name []byte, score float64) *node {
	n := &node{score: score, name: append([]byte(nil), name...)}
	initTree(&n.tree)
	n.tree.Value = n
	n.hnode.Value = n
	return n
}

// Set is a sorted set of (name, score) members.
type Set struct {
	root  *avlNode
	index hashIndex
}

// hashString is FNV-1a, used to key the name index. It does not need to be
// cryptographically strong: it only has to distribute names across
// buckets.
func hashString(b []byte) uint64 {
	var h uint64 = 14695981039346656037
	for _, c := range b {
		h ^= uint64(c)
		h *= 1099511628211
	}
	return h
}

func eqName(name []byte) func(*node) bool {
	return func(n *node) bool { return bytes.Equal(n.name, name) }
}

// Lookup returns the member's score and whether it exists.
func (z *Set) Lookup(name []byte) (float64, bool) {
	n := z.lookupNode(name)
	if n == nil {
		return 0, false
	}
	return n.score, true
}

func (z *Set) lookupNode(name []byte) *node {
	if z.root == nil {
		return nil
	}
	v, ok := z.index.Lookup(hashString(name), eqName(name))
	if !ok {
		return nil
	}
	return v
}

// isLess reports whether n sorts strictly before (score, name) in the
// (score, name) total order: ties on score are broken by raw byte
// comparison of the name, then by name length. This exact tie-break order
// (byte comparison first, length second) is preserved from the precursor
// project because ZQUERY's ordering depends on it.
func isLess(n *node, score float64, name []byte) bool {
	if n.score != score {
		return n.score < score
	}
	l := len(n.name)
	if len(name) < l {
		l = len(name)
	}
	rv := bytes.Compare(n.name[:l], name[:l])
	if rv != 0 {
		return rv < 0
	}
	return len(n.name) < len(name)
}

func lessNodes(a, b *node) bool {
	return isLess(a, b.score, b.name)
}

func (z *Set) treeInsert(n *node) {
	var parent *avlNode
	from := &z.root
	for *from != nil {
		parent = *from
		if lessNodes(n, parent.Value) {
			from = &parent.Left
		} else {
			from = &parent.Right
		}
	}
	*from = &n.tree
	n.tree.Parent = parent
	z.root = avlFix(&n.tree)
}

// Insert adds name at score, or updates its score if it already exists.
// It reports true if a new member was added, false if an existing one was
// updated.
func (z *Set) Insert(name []byte, score float64) bool {
	n := z.lookupNode(name)
	if n != nil {
		z.root = avlDel(&n.tree)
		initTree(&n.tree)
		n.score = score
		z.treeInsert(n)
		return false
	}

	n = newNode(name, score)
	z.index.Insert(&n.hnode, hashString(name))
	z.treeInsert(n)
	return true
}

// Delete removes name, reporting whether it was present.
func (z *Set) Delete(name []byte) bool {
	n := z.lookupNode(name)
	if n == nil {
		return false
	}
	z.index.Delete(hashString(name), eqName(name))
	z.root = avlDel(&n.tree)
	return true
}

// Len returns the number of members.
func (z *Set) Len() int {
	return z.index.Size()
}

// Clear removes every member.
func (z *Set) Clear() {
	z.root = nil
	z.index = hashIndex{}
}

// Pair is one (name, score) result from Query.
type Pair struct {
	Name  []byte
	Score float64
}

// Query finds the first member with (score, name) >= (minScore, minName),
// steps offset positions forward or backward through the ordered
// sequence, then collects up to limit consecutive (name, score) pairs.
// A non-positive limit yields no results.
func (z *Set) Query(minScore float64, minName []byte, offset int64, limit int) []Pair {
	if limit <= 0 {
		return nil
	}
	start := z.seekGE(minScore, minName)
	if start != nil {
		start = avlOffset(start, offset)
	}

	out := make([]Pair, 0, limit)
	for n := start; n != nil && len(out) < limit; n = avlOffset(n, 1) {
		v := n.Value
		out = append(out, Pair{Name: v.name, Score: v.score})
	}
	return out
}

// seekGE returns the first tree node with (score, name) >= the target, or
// nil if none exists.
func (z *Set) seekGE(score float64, name []byte) *avlNode {
	var found *avlNode
	for n := z.root; n != nil; {
		if isLess(n.Value, score, name) {
			n = n.Right
		} else {
			found = n
			n = n.Left
		}
	}
	return found
}
