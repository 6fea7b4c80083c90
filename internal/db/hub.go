package db

import "sync"

// watchAll subscribes to changes on every recording
const watchAll uint = 0

type subscriber struct {
	filter uint
	// dirty holds at most one pending signal; observers re-query on wake,
	// so several mutations between reads collapse into one snapshot.
	dirty chan struct{}
}

// hub fans out change notifications to live query subscribers
type hub struct {
	mu   sync.Mutex
	subs map[int]*subscriber
	next int
}

func newHub() *hub {
	return &hub{subs: make(map[int]*subscriber)}
}

func (h *hub) subscribe(filter uint) (*subscriber, func()) {
	sub := &subscriber{
		filter: filter,
		dirty:  make(chan struct{}, 1),
	}

	h.mu.Lock()
	key := h.next
	h.next++
	h.subs[key] = sub
	h.mu.Unlock()

	return sub, func() {
		h.mu.Lock()
		delete(h.subs, key)
		h.mu.Unlock()
	}
}

// publish marks every subscriber interested in id as dirty without blocking
func (h *hub) publish(id uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if sub.filter != watchAll && sub.filter != id {
			continue
		}
		select {
		case sub.dirty <- struct{}{}:
		default:
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
