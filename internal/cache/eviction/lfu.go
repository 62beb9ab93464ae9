package eviction

import "container/list"

// lfuEntry is the per-key bookkeeping: its current frequency and its
// position inside that frequency's bucket list.
type lfuEntry struct {
	key  string
	freq int
	el   *list.Element
}

// lfu buckets keys by access frequency. Each bucket is an ordered list:
// keys are appended on arrival, so the bucket front is always the
// earliest-inserted key at that frequency, which is the tie-break rule.
// minFreq points at the lowest nonempty bucket so eviction is O(1).
type lfu struct {
	entries map[string]*lfuEntry
	buckets map[int]*list.List
	minFreq int
}

func newLFU() *lfu {
	return &lfu{
		entries: make(map[string]*lfuEntry),
		buckets: make(map[int]*list.List),
	}
}

func (l *lfu) OnGet(key string) {
	if e, ok := l.entries[key]; ok {
		l.promote(e)
	}
}

func (l *lfu) OnPut(key string) {
	if e, ok := l.entries[key]; ok {
		// Overwrite counts as an access.
		l.promote(e)
		return
	}
	e := &lfuEntry{key: key, freq: 1}
	e.el = l.bucket(1).PushBack(e)
	l.entries[key] = e
	l.minFreq = 1
}

func (l *lfu) Remove(key string) {
	e, ok := l.entries[key]
	if !ok {
		return
	}
	l.discard(e)
}

func (l *lfu) Evict() string {
	if len(l.entries) == 0 {
		return ""
	}
	e := l.buckets[l.minFreq].Front().Value.(*lfuEntry)
	l.discard(e)
	return e.key
}

// promote moves an entry to the next frequency bucket. Appending keeps
// insertion order within the target bucket. If the entry drained the
// minimum bucket, the minimum is exactly one higher: the entry itself
// now lives there.
func (l *lfu) promote(e *lfuEntry) {
	b := l.buckets[e.freq]
	b.Remove(e.el)
	if b.Len() == 0 {
		delete(l.buckets, e.freq)
		if l.minFreq == e.freq {
			l.minFreq = e.freq + 1
		}
	}
	e.freq++
	e.el = l.bucket(e.freq).PushBack(e)
}

// discard drops an entry entirely. When the minimum bucket empties the
// next nonempty bucket is found by an upward scan; frequencies are
// dense in practice so the scan stays short.
func (l *lfu) discard(e *lfuEntry) {
	b := l.buckets[e.freq]
	b.Remove(e.el)
	delete(l.entries, e.key)
	if b.Len() == 0 {
		delete(l.buckets, e.freq)
		if l.minFreq == e.freq {
			l.minFreq = l.lowestFreq()
		}
	}
}

func (l *lfu) lowestFreq() int {
	if len(l.entries) == 0 {
		return 0
	}
	for f := 1; ; f++ {
		if b, ok := l.buckets[f]; ok && b.Len() > 0 {
			return f
		}
	}
}

func (l *lfu) bucket(freq int) *list.List {
	b, ok := l.buckets[freq]
	if !ok {
		b = list.New()
		l.buckets[freq] = b
	}
	return b
}
