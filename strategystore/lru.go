package strategystore

import "container/list"

// lru is a fixed-capacity, least-recently-used cache of chunk numbers to
// loaded chunks. Eviction calls back into the store so a dirty chunk is
// flushed before it's dropped (spec.md §4.5 "an in-memory LRU ... reduces
// disk thrashing").
type lru struct {
	capacity int
	order    *list.List
	items    map[int]*list.Element
	onEvict  func(chunkNum int, c *Chunk)
}

type lruEntry struct {
	chunkNum int
	chunk    *Chunk
}

func newLRU(capacity int, onEvict func(int, *Chunk)) *lru {
	if capacity <= 0 {
		capacity = 10
	}
	return &lru{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[int]*list.Element),
		onEvict:  onEvict,
	}
}

func (l *lru) get(chunkNum int) (*Chunk, bool) {
	el, ok := l.items[chunkNum]
	if !ok {
		return nil, false
	}
	l.order.MoveToFront(el)
	return el.Value.(*lruEntry).chunk, true
}

func (l *lru) put(chunkNum int, c *Chunk) {
	if el, ok := l.items[chunkNum]; ok {
		el.Value.(*lruEntry).chunk = c
		l.order.MoveToFront(el)
		return
	}

	el := l.order.PushFront(&lruEntry{chunkNum: chunkNum, chunk: c})
	l.items[chunkNum] = el

	for l.order.Len() > l.capacity {
		back := l.order.Back()
		if back == nil {
			break
		}
		entry := back.Value.(*lruEntry)
		l.order.Remove(back)
		delete(l.items, entry.chunkNum)
		if l.onEvict != nil {
			l.onEvict(entry.chunkNum, entry.chunk)
		}
	}
}

// evictAll flushes and drops every cached chunk, used by Store.Flush.
func (l *lru) evictAll() {
	for l.order.Len() > 0 {
		back := l.order.Back()
		entry := back.Value.(*lruEntry)
		l.order.Remove(back)
		delete(l.items, entry.chunkNum)
		if l.onEvict != nil {
			l.onEvict(entry.chunkNum, entry.chunk)
		}
	}
}
