package alert

import (
	"sync"
	"time"
)

// Notifier holds the single current alert, closes it once its lifetime runs
// out and fans every change out to subscribers.
type Notifier struct {
	mu      sync.Mutex
	current Alert
	seq     uint64
	timer   *time.Timer
	subs    map[chan Alert]struct{}
	now     func() time.Time
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[chan Alert]struct{}), now: time.Now}
}

// Publish replaces the current alert. Any pending auto-hide of the previous
// alert is cancelled.
func (n *Notifier) Publish(a Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.seq++
	a.ID = n.seq
	a.Open = true
	if a.CreatedAt.IsZero() {
		a.CreatedAt = n.now()
	}
	n.current = a

	if !a.Persistent && a.HideAfter > 0 {
		id := a.ID
		n.timer = time.AfterFunc(a.HideAfter, func() { n.hide(id) })
	}
	n.broadcast(a)
}

// Current returns the latest alert. Open is false once it was dismissed or
// timed out.
func (n *Notifier) Current() Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Dismiss closes the current alert.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.close()
}

func (n *Notifier) hide(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	// a newer alert replaced the one this timer belonged to
	if n.current.ID != id {
		return
	}
	n.timer = nil
	n.close()
}

func (n *Notifier) close() {
	if !n.current.Open {
		return
	}
	n.current.Open = false
	n.broadcast(n.current)
}

// Subscribe returns a channel receiving every published and closed alert.
// Slow subscribers miss updates rather than blocking publishers. Call the
// returned func to unsubscribe.
func (n *Notifier) Subscribe(buffer int) (<-chan Alert, func()) {
	ch := make(chan Alert, buffer)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, ch)
			n.mu.Unlock()
			close(ch)
		})
	}
}

func (n *Notifier) broadcast(a Alert) {
	for ch := range n.subs {
		select {
		case ch <- a:
		default:
		}
	}
}
