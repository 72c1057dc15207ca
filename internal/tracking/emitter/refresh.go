package emitter

import "sync"

// RefreshSignal tells list views that data they show may have changed. It
// carries only the invalidated key prefix; subscribers refetch on their own.
type RefreshSignal struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan string
}

func NewRefreshSignal() *RefreshSignal {
	return &RefreshSignal{subs: make(map[int]chan string)}
}

// Subscribe returns a channel that receives invalidated prefixes. Signals fired
// while a previous one is unread are coalesced. cancel closes the channel.
func (r *RefreshSignal) Subscribe() (<-chan string, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	ch := make(chan string, 1)
	r.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Fire notifies every subscriber without blocking.
func (r *RefreshSignal) Fire(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ch := range r.subs {
		select {
		case ch <- prefix:
		default:
		}
	}
}

// OnInvalidated matches cache.InvalidationFunc so the signal can be registered
// with the store directly. Empty deletes are ignored.
func (r *RefreshSignal) OnInvalidated(prefix string, removed int) {
	if removed == 0 {
		return
	}
	r.Fire(prefix)
}
