// Package expiry implements a binary min-heap of absolute deadlines, each
// item carrying a back-reference to the index slot of the object that owns
// it. Whenever an item moves during a sift, the owner's index slot is
// updated in the same step, so the owner always knows its own heap
// position without a reverse lookup.
//
// Ported from the precursor project's heap.h/heap.cpp (heapUp/heapDown),
// generalized with an Upsert/Delete pair matching how entrySetTTL and
// entryDel use it (overwrite-in-place on TTL change, swap-with-last on
// removal) instead of exposing raw sift primitives.
package expiry

// Item pairs an absolute millisecond deadline with a pointer to the index
// field of its owner. Ref is kept in sync with the item's position on
// every placement. Owner carries whatever the caller needs to recover the
// full owning object when processing a due item off the top of the heap
// (the precursor's heap item has no owner field and recovers the owner
// from the Ref slot's enclosing struct by pointer arithmetic; Go's version
// carries the owner explicitly as an interface).
type Item struct {
	Deadline uint64
	Ref      *int
	Owner    any
}

// Heap is a min-heap ordered by Deadline.
type Heap struct {
	items []Item
}

// Len returns the number of items in the heap.
func (h *Heap) Len() int { return len(h.items) }

// Top returns the item with the smallest deadline, if any.
func (h *Heap) Top() (Item, bool) {
	if len(h.items) == 0 {
		return Item{}, false
	}
	return h.items[0], true
}

// ItemAt returns the item currently at pos. Callers track pos via the
// Ref they supplied at Upsert time, which Upsert/Delete keep current.
func (h *Heap) ItemAt(pos int) (Item, bool) {
	if pos < 0 || pos >= len(h.items) {
		return Item{}, false
	}
	return h.items[pos], true
}

func parent(pos int) int { return (pos+1)/2 - 1 }
func left(pos int) int   { return pos*2 + 1 }
func right(pos int) int  { return pos*2 + 2 }

func (h *Heap) place(pos int, it Item) {
	h.items[pos] = it
	*it.Ref = pos
}

func (h *Heap) siftUp(pos int) {
	t := h.items[pos]
	for pos > 0 && h.items[parent(pos)].Deadline > t.Deadline {
		h.place(pos, h.items[parent(pos)])
		pos = parent(pos)
	}
	h.place(pos, t)
}

func (h *Heap) siftDown(pos int) {
	n := len(h.items)
	t := h.items[pos]
	for {
		l, r := left(pos), right(pos)
		minPos := pos
		minVal := t.Deadline
		if l < n && h.items[l].Deadline < minVal {
			minVal = h.items[l].Deadline
			minPos = l
		}
		if r < n && h.items[r].Deadline < minVal {
			minPos = r
		}
		if minPos == pos {
			break
		}
		h.place(pos, h.items[minPos])
		pos = minPos
	}
	h.place(pos, t)
}

// Upsert places it at pos. If pos equals Len(), it appends a new item;
// otherwise it overwrites the existing item at pos (e.g. a TTL change)
// and re-heapifies from there. Either way, it.Ref is kept current with
// the item's final resting position.
func (h *Heap) Upsert(pos int, it Item) {
	if pos == len(h.items) {
		h.items = append(h.items, it)
	} else {
		h.items[pos] = it
	}
	if pos > 0 && h.items[parent(pos)].Deadline > h.items[pos].Deadline {
		h.siftUp(pos)
	} else {
		h.siftDown(pos)
	}
}

// Delete removes the item at pos by moving the last item into its place
// and re-heapifying, if the heap is non-empty afterward.
func (h *Heap) Delete(pos int) {
	last := len(h.items) - 1
	h.items[pos] = h.items[last]
	h.items = h.items[:last]
	if pos < len(h.items) {
		if pos > 0 && h.items[parent(pos)].Deadline > h.items[pos].Deadline {
			h.siftUp(pos)
		} else {
			h.siftDown(pos)
		}
	}
}
