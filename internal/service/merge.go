package service

import (
	"container/heap"

	"canopy/internal/models"
)

// itemLess reports whether a sorts before b in a feed.
type itemLess func(a, b models.TimelineItem) bool

// trendingLess orders by score, then recency, then type and id so the
// order is total across sources.
func trendingLess(a, b models.TimelineItem) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return recentLess(a, b)
}

// recentLess orders by timestamp descending with type and id tie-breaks.
func recentLess(a, b models.TimelineItem) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return a.ID < b.ID
}

type cursor struct {
	items []models.TimelineItem
	pos   int
}

func (c *cursor) head() models.TimelineItem { return c.items[c.pos] }

type cursorHeap struct {
	cursors []*cursor
	less    itemLess
}

func (h *cursorHeap) Len() int { return len(h.cursors) }
func (h *cursorHeap) Less(i, j int) bool {
	return h.less(h.cursors[i].head(), h.cursors[j].head())
}
func (h *cursorHeap) Swap(i, j int) { h.cursors[i], h.cursors[j] = h.cursors[j], h.cursors[i] }
func (h *cursorHeap) Push(x any)    { h.cursors = append(h.cursors, x.(*cursor)) }
func (h *cursorHeap) Pop() any {
	old := h.cursors
	n := len(old)
	c := old[n-1]
	h.cursors = old[:n-1]
	return c
}

// mergeSources performs a k-way merge of sources, each already sorted by
// less, and returns at most limit items in global order.
func mergeSources(sources [][]models.TimelineItem, less itemLess, limit int) []models.TimelineItem {
	h := &cursorHeap{less: less}
	total := 0
	for _, items := range sources {
		if len(items) > 0 {
			h.cursors = append(h.cursors, &cursor{items: items})
			total += len(items)
		}
	}
	heap.Init(h)

	out := make([]models.TimelineItem, 0, min(limit, total))
	for h.Len() > 0 && len(out) < limit {
		c := h.cursors[0]
		out = append(out, c.head())
		c.pos++
		if c.pos == len(c.items) {
			heap.Pop(h)
		} else {
			heap.Fix(h, 0)
		}
	}
	return out
}
