package avl

import (
	"math"
	"math/rand"
	"testing"
)

// payload is a minimal ordered value used to exercise the tree without
// pulling in the zset package.
type payload struct {
	key  int
	tree Node[*payload]
}

func newPayload(key int) *payload {
	p := &payload{key: key}
	Init(&p.tree)
	p.tree.Value = p
	return p
}

func insert(root *Node[*payload], p *payload) *Node[*payload] {
	var parent *Node[*payload]
	from := &root
	for *from != nil {
		parent = *from
		if p.key < parent.Value.key {
			from = &parent.Left
		} else {
			from = &parent.Right
		}
	}
	*from = &p.tree
	p.tree.Parent = parent
	return Fix(&p.tree)
}

func inorder(node *Node[*payload], out *[]int) {
	if node == nil {
		return
	}
	inorder(node.Left, out)
	*out = append(*out, node.Value.key)
	inorder(node.Right, out)
}

func checkInvariants(t *testing.T, node *Node[*payload]) (height, cnt uint32) {
	t.Helper()
	if node == nil {
		return 0, 0
	}
	lh, lc := checkInvariants(t, node.Left)
	rh, rc := checkInvariants(t, node.Right)

	if node.Left != nil && node.Left.Parent != node {
		t.Fatalf("left child of %d has wrong parent", node.Value.key)
	}
	if node.Right != nil && node.Right.Parent != node {
		t.Fatalf("right child of %d has wrong parent", node.Value.key)
	}

	diff := int(lh) - int(rh)
	if diff > 1 || diff < -1 {
		t.Fatalf("node %d unbalanced: left height %d right height %d", node.Value.key, lh, rh)
	}

	wantHeight := 1 + lh
	if rh > lh {
		wantHeight = 1 + rh
	}
	if node.Height != wantHeight {
		t.Fatalf("node %d height = %d, want %d", node.Value.key, node.Height, wantHeight)
	}
	wantCount := 1 + lc + rc
	if node.Count != wantCount {
		t.Fatalf("node %d count = %d, want %d", node.Value.key, node.Count, wantCount)
	}

	return node.Height, node.Count
}

func TestInsertKeepsSortedOrderAndBalance(t *testing.T) {
	var root *Node[*payload]
	var keys []int
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		k := r.Intn(1000)
		keys = append(keys, k)
		root = insert(root, newPayload(k))
	}

	height, cnt := checkInvariants(t, root)
	if int(cnt) != len(keys) {
		t.Fatalf("count = %d, want %d", cnt, len(keys))
	}
	maxHeight := uint32(math.Ceil(1.44 * math.Log2(float64(len(keys)+2))))
	if height > maxHeight {
		t.Fatalf("height %d exceeds AVL bound %d for n=%d", height, maxHeight, len(keys))
	}

	var got []int
	inorder(root, &got)
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("inorder sequence not sorted at index %d: %v", i, got)
		}
	}
}

func TestDeleteLeafTwoChildAndRoot(t *testing.T) {
	var root *Node[*payload]
	nodes := map[int]*payload{}
	for _, k := range []int{50, 30, 70, 20, 40, 60, 80, 10} {
		p := newPayload(k)
		nodes[k] = p
		root = insert(root, p)
	}

	// delete a two-child node
	root = Del(&nodes[30].tree)
	checkInvariants(t, root)
	var got []int
	inorder(root, &got)
	for _, k := range got {
		if k == 30 {
			t.Fatalf("30 should have been removed, got %v", got)
		}
	}

	// delete the root repeatedly until empty
	for len(got) > 0 {
		root = Del(root)
		if root != nil {
			checkInvariants(t, root)
		}
		got = nil
		inorder(root, &got)
	}
	if root != nil {
		t.Fatalf("expected empty tree, got root with key %d", root.Value.key)
	}
}

func TestOffset(t *testing.T) {
	var root *Node[*payload]
	for i := 0; i < 20; i++ {
		root = insert(root, newPayload(i))
	}

	// root isn't necessarily the first element; walk to the smallest
	// element and use Offset relative to it.
	smallest := root
	for smallest.Left != nil {
		smallest = smallest.Left
	}
	first := Offset(smallest, 0)
	if first.Value.key != 0 {
		t.Fatalf("offset 0 from smallest = %d, want 0", first.Value.key)
	}

	for k := 0; k < 20; k++ {
		n := Offset(smallest, int64(k))
		if n == nil || n.Value.key != k {
			t.Fatalf("offset %d = %v, want %d", k, n, k)
		}
	}

	if n := Offset(smallest, -1); n != nil {
		t.Fatalf("offset -1 from smallest should be nil, got %d", n.Value.key)
	}
	if n := Offset(smallest, 20); n != nil {
		t.Fatalf("offset past the end should be nil, got %d", n.Value.key)
	}
}
