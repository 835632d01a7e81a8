package zset

import (
	"github.com/eric-armendariz/build-redis/internal/avl"
	"github.com/eric-armendariz/build-redis/internal/hashtable"
)

// avlNode and hashNode are the concrete instantiations of the generic tree
// and hash-table node types this package uses. Aliasing them keeps the
// rest of the file free of type parameters.
type (
	avlNode   = avl.Node[*node]
	hashNode  = hashtable.Node[*node]
	hashIndex = hashtable.Map[*node]
)

func initTree(n *avlNode) { avl.Init(n) }
func avlFix(n *avlNode) *avlNode              { return avl.Fix(n) }
func avlDel(n *avlNode) *avlNode              { return avl.Del(n) }
func avlOffset(n *avlNode, k int64) *avlNode  { return avl.Offset(n, k) }
