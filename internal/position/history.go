package position

import "tokenTradeBot/internal/domain"

// historyRing is a fixed-capacity ring buffer of closed positions. Once the
// arena is full, each push overwrites the oldest entry in O(1); there is no
// slice reallocation or element shifting.
type historyRing struct {
	buf   []*domain.ClosedPosition
	next  int // write index
	count int // number of valid entries, <= len(buf)
}

func newHistoryRing(capacity int) *historyRing {
	return &historyRing{buf: make([]*domain.ClosedPosition, capacity)}
}

// Push appends a closed position, evicting the oldest entry when full.
func (r *historyRing) Push(cp *domain.ClosedPosition) {
	r.buf[r.next] = cp
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

func (r *historyRing) Len() int {
	return r.count
}

// Recent returns up to n entries, newest first.
func (r *historyRing) Recent(n int) []*domain.ClosedPosition {
	if n > r.count {
		n = r.count
	}
	out := make([]*domain.ClosedPosition, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}

// Each visits every retained entry, oldest first.
func (r *historyRing) Each(fn func(cp *domain.ClosedPosition)) {
	start := (r.next - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		fn(r.buf[(start+i)%len(r.buf)])
	}
}
