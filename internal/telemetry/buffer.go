package telemetry

import "sync"

// MaxFrameBuffer is how many recent frames the receiver keeps.
const MaxFrameBuffer = 500

// Buffer is a bounded, concurrency-safe ring keeping the most recent items.
type Buffer[T any] struct {
	mu    sync.Mutex
	items []T
	next  int
	full  bool
	total uint64
}

// NewBuffer returns a Buffer holding at most capacity items.
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic("telemetry: buffer capacity must be positive")
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Add appends v, evicting the oldest item when full.
func (b *Buffer[T]) Add(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[b.next] = v
	b.next = (b.next + 1) % len(b.items)
	if b.next == 0 {
		b.full = true
	}
	b.total++
}

// Len returns the number of items held.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lenLocked()
}

func (b *Buffer[T]) lenLocked() int {
	if b.full {
		return len(b.items)
	}
	return b.next
}

// Total returns how many items were ever added.
func (b *Buffer[T]) Total() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Recent returns up to limit of the newest items, oldest first. A limit of
// zero or less returns everything held.
func (b *Buffer[T]) Recent(limit int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.lenLocked()
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]T, 0, limit)
	start := (b.next - limit + len(b.items)) % len(b.items)
	for i := 0; i < limit; i++ {
		out = append(out, b.items[(start+i)%len(b.items)])
	}
	return out
}
