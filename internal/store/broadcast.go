package store

import (
	"context"
	"sync"
)

// Broadcaster fans collection snapshots out to per-path subscribers. Each
// subscriber is served by its own goroutine and only ever sees the latest
// pending snapshot, so callbacks never observe snapshots out of order.
// Publish waits until every subscriber has handled the snapshot, which
// makes a write visible to in-process watchers by the time it returns.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[Path]map[*subscriber]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[Path]map[*subscriber]struct{})}
}

type subscriber struct {
	fn func([]Record)

	mu      sync.Mutex
	cond    *sync.Cond
	pending []Record
	queued  uint64 // sequence of the newest snapshot handed in
	taken   uint64 // sequence of the snapshot the runner picked up last
	applied uint64 // sequence whose callback has returned
	running bool
	closed  bool
}

// Listener is the handle returned by Add.
type Listener struct {
	b    *Broadcaster
	path Path
	s    *subscriber
	once sync.Once
	done chan struct{}
}

// Add registers fn for path. Callers send the initial snapshot themselves
// with Deliver.
func (b *Broadcaster) Add(path Path, fn func([]Record)) *Listener {
	s := &subscriber{fn: fn}
	s.cond = sync.NewCond(&s.mu)
	b.mu.Lock()
	set, ok := b.subs[path]
	if !ok {
		set = make(map[*subscriber]struct{})
		b.subs[path] = set
	}
	set[s] = struct{}{}
	b.mu.Unlock()
	return &Listener{b: b, path: path, s: s, done: make(chan struct{})}
}

// Publish hands records to every subscriber of path and returns once each
// of them has processed these records, a later snapshot, or unsubscribed.
// Callbacks must not write to the store they watch.
func (b *Broadcaster) Publish(path Path, records []Record) {
	b.mu.Lock()
	targets := make([]*subscriber, 0, len(b.subs[path]))
	for s := range b.subs[path] {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	seqs := make([]uint64, len(targets))
	for i, s := range targets {
		seqs[i] = s.deliver(CloneRecords(records))
	}
	for i, s := range targets {
		s.wait(seqs[i])
	}
}

// Has reports whether anyone listens on path.
func (b *Broadcaster) Has(path Path) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[path]) > 0
}

// Paths returns every path with at least one subscriber.
func (b *Broadcaster) Paths() []Path {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Path, 0, len(b.subs))
	for p := range b.subs {
		out = append(out, p)
	}
	return out
}

func (b *Broadcaster) remove(path Path, s *subscriber) {
	b.mu.Lock()
	if set, ok := b.subs[path]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(b.subs, path)
		}
	}
	b.mu.Unlock()
	s.mu.Lock()
	s.closed = true
	s.pending = nil
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Deliver sends records to this subscription only, without waiting.
func (sub *Listener) Deliver(records []Record) {
	sub.s.deliver(CloneRecords(records))
}

func (sub *Listener) Unsubscribe() {
	sub.once.Do(func() {
		sub.b.remove(sub.path, sub.s)
		close(sub.done)
	})
}

// Done is closed once the listener is unsubscribed.
func (sub *Listener) Done() <-chan struct{} {
	return sub.done
}

// Bind unsubscribes the listener when ctx is done. The goroutine it starts
// exits on whichever of ctx or Unsubscribe comes first.
func (sub *Listener) Bind(ctx context.Context) {
	stop := ctx.Done()
	if stop == nil {
		return
	}
	go func() {
		select {
		case <-stop:
			sub.Unsubscribe()
		case <-sub.done:
		}
	}()
}

// deliver queues records and returns their sequence number, or 0 when the
// subscriber is closed.
func (s *subscriber) deliver(records []Record) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	s.queued++
	s.pending = records
	if !s.running {
		s.running = true
		go s.run()
	}
	return s.queued
}

// wait blocks until the callback for seq, or a later one, has returned.
func (s *subscriber) wait(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.applied < seq && !s.closed {
		s.cond.Wait()
	}
}

func (s *subscriber) run() {
	for {
		s.mu.Lock()
		if s.taken == s.queued || s.closed {
			s.running = false
			s.mu.Unlock()
			return
		}
		records, seq := s.pending, s.queued
		s.pending, s.taken = nil, seq
		s.mu.Unlock()

		s.fn(records)

		s.mu.Lock()
		s.applied = seq
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}
