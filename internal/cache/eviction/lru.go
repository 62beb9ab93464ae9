package eviction

import "container/list"

// lru tracks recency with a doubly linked list plus a key→element map,
// giving O(1) touch, insert, remove, and evict. The list front is the
// most recently used key; eviction always takes the back.
type lru struct {
	order    *list.List
	elements map[string]*list.Element
}

func newLRU() *lru {
	return &lru{
		order:    list.New(),
		elements: make(map[string]*list.Element),
	}
}

func (l *lru) OnGet(key string) {
	if el, ok := l.elements[key]; ok {
		l.order.MoveToFront(el)
	}
}

func (l *lru) OnPut(key string) {
	if el, ok := l.elements[key]; ok {
		l.order.MoveToFront(el)
		return
	}
	l.elements[key] = l.order.PushFront(key)
}

func (l *lru) Remove(key string) {
	if el, ok := l.elements[key]; ok {
		l.order.Remove(el)
		delete(l.elements, key)
	}
}

func (l *lru) Evict() string {
	back := l.order.Back()
	if back == nil {
		return ""
	}
	key := back.Value.(string)
	l.order.Remove(back)
	delete(l.elements, key)
	return key
}
