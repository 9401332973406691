package serialmux

import (
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer is how many lines a subscriber may fall behind before
// lines are dropped for it.
const subscriberBuffer = 64

// fanout hands each published line to every subscriber without blocking.
// Once shut, new subscribers get an already closed channel.
type fanout struct {
	mu     sync.Mutex
	buffer int
	subs   map[string]chan string
	shut   bool
}

func newFanout(buffer int) *fanout {
	return &fanout{buffer: buffer, subs: make(map[string]chan string)}
}

func (f *fanout) subscribe() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string, f.buffer)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shut {
		close(ch)
		return id, ch
	}
	f.subs[id] = ch
	return id, ch
}

func (f *fanout) unsubscribe(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subs[id]; ok {
		close(ch)
		delete(f.subs, id)
	}
}

// publish drops the line for subscribers whose buffer is full.
func (f *fanout) publish(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- line:
		default:
		}
	}
}

// shutdown closes every subscriber. It reports false if already shut.
func (f *fanout) shutdown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shut {
		return false
	}
	f.shut = true
	for id, ch := range f.subs {
		close(ch)
		delete(f.subs, id)
	}
	return true
}

func (f *fanout) isShut() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shut
}

func (f *fanout) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
