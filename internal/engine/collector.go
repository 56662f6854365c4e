package engine

import "container/heap"

// PatternCount is the number of times one pattern matched.
type PatternCount struct {
	Pattern string `json:"pattern"`
	Count   int    `json:"count"`
}

// TopKCollector keeps the K most frequent patterns using a min-heap.
// Ties are broken by pattern text, smallest first.
type TopKCollector struct {
	k int
	h countHeap
}

// NewTopKCollector creates a collector for the top K patterns.
func NewTopKCollector(k int) *TopKCollector {
	if k <= 0 {
		k = 10
	}
	return &TopKCollector{
		k: k,
		h: make(countHeap, 0, k),
	}
}

// Collect offers a pattern with its count.
func (c *TopKCollector) Collect(pattern string, count int) {
	pc := PatternCount{Pattern: pattern, Count: count}
	if c.h.Len() < c.k {
		heap.Push(&c.h, pc)
		return
	}
	if less(c.h[0], pc) {
		c.h[0] = pc
		heap.Fix(&c.h, 0)
	}
}

// MinCount returns the smallest count kept so far.
// Returns 0 if fewer than K patterns have been collected.
func (c *TopKCollector) MinCount() int {
	if c.h.Len() < c.k {
		return 0
	}
	return c.h[0].Count
}

// Len returns the number of patterns collected so far.
func (c *TopKCollector) Len() int {
	return c.h.Len()
}

// Results drains the collector, most frequent first.
func (c *TopKCollector) Results() []PatternCount {
	result := make([]PatternCount, c.h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&c.h).(PatternCount)
	}
	return result
}

// less orders by count, then by reverse pattern text, so the heap root is
// the first entry to evict.
func less(a, b PatternCount) bool {
	if a.Count != b.Count {
		return a.Count < b.Count
	}
	return a.Pattern > b.Pattern
}

// countHeap is a min-heap of PatternCount.
type countHeap []PatternCount

func (h countHeap) Len() int           { return len(h) }
func (h countHeap) Less(i, j int) bool { return less(h[i], h[j]) }
func (h countHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *countHeap) Push(x any)        { *h = append(*h, x.(PatternCount)) }
func (h *countHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
