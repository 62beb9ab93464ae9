package eviction

import "container/list"

// fifo evicts in insertion order. Overwrites and reads do not change a
// key's position; only first insertion does.
type fifo struct {
	order    *list.List
	elements map[string]*list.Element
}

func newFIFO() *fifo {
	return &fifo{
		order:    list.New(),
		elements: make(map[string]*list.Element),
	}
}

func (f *fifo) OnGet(string) {}

func (f *fifo) OnPut(key string) {
	if _, ok := f.elements[key]; ok {
		return
	}
	f.elements[key] = f.order.PushBack(key)
}

func (f *fifo) Remove(key string) {
	if el, ok := f.elements[key]; ok {
		f.order.Remove(el)
		delete(f.elements, key)
	}
}

func (f *fifo) Evict() string {
	front := f.order.Front()
	if front == nil {
		return ""
	}
	key := front.Value.(string)
	f.order.Remove(front)
	delete(f.elements, key)
	return key
}
