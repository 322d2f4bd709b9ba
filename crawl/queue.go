package crawl

import (
	"container/heap"

	"github.com/fwojciec/docingest"
)

// queuedLink is a claimed URL waiting for a worker.
type queuedLink struct {
	index    int // position in the crawl manifest
	url      string
	priority docingest.LinkPriority
	seq      int
}

// linkQueue is a max-priority queue; equal priorities pop in FIFO order.
// It is only touched by the coordinator goroutine.
type linkQueue struct {
	h   linkHeap
	seq int
}

func (q *linkQueue) push(index int, url string, priority docingest.LinkPriority) {
	heap.Push(&q.h, queuedLink{index: index, url: url, priority: priority, seq: q.seq})
	q.seq++
}

func (q *linkQueue) peek() queuedLink { return q.h[0] }

func (q *linkQueue) pop() queuedLink {
	link, _ := heap.Pop(&q.h).(queuedLink)
	return link
}

func (q *linkQueue) len() int { return q.h.Len() }

// linkHeap implements heap.Interface for queuedLink.
type linkHeap []queuedLink

func (h linkHeap) Len() int { return len(h) }

// Less returns true if i has higher priority than j (max-heap).
func (h linkHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h linkHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *linkHeap) Push(x any) {
	link, _ := x.(queuedLink)
	*h = append(*h, link)
}

func (h *linkHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
