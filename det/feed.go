package det

import "sync"

// Feed fans reports out to subscribers, each with its own bounded queue.
// A slow subscriber loses its oldest queued report, never blocks the reporter.
type Feed struct {
	mu   sync.RWMutex
	subs map[Key][]*Subscription
	qLen int
}

// Subscription receives reports matching its filter.
type Subscription struct {
	filter Key
	ch     chan Report
	feed   *Feed
	once   sync.Once
}

func (s *Subscription) Filter() Key            { return s.filter }
func (s *Subscription) Channel() <-chan Report { return s.ch }
func (s *Subscription) Unsubscribe()           { s.feed.unsubscribe(s) }

// NewFeed creates a feed with the given per-subscriber queue length.
func NewFeed(queueLen int) *Feed {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Feed{subs: make(map[Key][]*Subscription), qLen: queueLen}
}

// Subscribe registers for reports matching filter. Use AnyAPI to receive
// every report of a module.
func (f *Feed) Subscribe(filter Key) *Subscription {
	s := &Subscription{filter: filter, ch: make(chan Report, f.qLen), feed: f}
	f.mu.Lock()
	f.subs[filter] = append(f.subs[filter], s)
	f.mu.Unlock()
	return s
}

// Publish delivers r to exact-key and module-wide subscribers.
func (f *Feed) Publish(r Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliver(f.subs[Key{r.Module, r.API}], r)
	if r.API != AnyAPI {
		f.deliver(f.subs[Key{r.Module, AnyAPI}], r)
	}
}

func (f *Feed) deliver(subs []*Subscription, r Report) {
	for _, s := range subs {
		select {
		case s.ch <- r:
		default:
			// drop oldest if queue full
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- r:
			default:
			}
		}
	}
}

// Handler adapts the feed for Tracer.Handle.
func (f *Feed) Handler() Handler { return f.Publish }

func (f *Feed) unsubscribe(s *Subscription) {
	f.mu.Lock()
	list := f.subs[s.filter]
	for i, x := range list {
		if x == s {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(f.subs, s.filter)
	} else {
		f.subs[s.filter] = list
	}
	f.mu.Unlock()
	s.once.Do(func() { close(s.ch) })
}
