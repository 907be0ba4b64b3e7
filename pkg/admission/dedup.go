package admission

import "github.com/zhaozixinnn/drawisthintv/pkg/danmaku"

// DedupSet records the keys admitted for the current event stream so that
// forward playback never shows the same logical event twice.
type DedupSet struct {
	keys map[danmaku.Key]struct{}
}

// NewDedupSet returns an empty set.
func NewDedupSet() *DedupSet {
	return &DedupSet{keys: make(map[danmaku.Key]struct{})}
}

// Has reports whether k was admitted.
func (d *DedupSet) Has(k danmaku.Key) bool {
	_, ok := d.keys[k]
	return ok
}

// Mark records k as admitted.
func (d *DedupSet) Mark(k danmaku.Key) {
	d.keys[k] = struct{}{}
}

// Len returns the number of admitted keys.
func (d *DedupSet) Len() int {
	return len(d.keys)
}

// Reset forgets every key. Used on content-unit change.
func (d *DedupSet) Reset() {
	clear(d.keys)
}

// ClearRange forgets keys with from <= Time < to, except those for which
// keep returns true. keep may be nil. It returns the number of keys removed.
func (d *DedupSet) ClearRange(from, to float64, keep func(danmaku.Key) bool) int {
	n := 0
	for k := range d.keys {
		if k.Time < from || k.Time >= to {
			continue
		}
		if keep != nil && keep(k) {
			continue
		}
		delete(d.keys, k)
		n++
	}
	return n
}
