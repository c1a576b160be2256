package presence

import "sync"

// StatusEvent is what subscribers receive when a worker's presence changes.
type StatusEvent struct {
	Status    Activity `json:"status"`
	HasWorker bool     `json:"hasWorker"`
}

// Broadcaster fans presence changes out to live subscribers. It is the only
// shared mutable in-process state; everything else is derived from the
// store or the platform at decision time.
type Broadcaster struct {
	// subscribers maps worker id -> *subscriberSet.
	subscribers sync.Map
}

type subscriberSet struct {
	mu    sync.Mutex
	sinks map[chan StatusEvent]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe registers a sink for one worker's presence changes. The returned
// func unsubscribes; callers must invoke it when done.
func (b *Broadcaster) Subscribe(workerID string) (<-chan StatusEvent, func()) {
	v, _ := b.subscribers.LoadOrStore(workerID, &subscriberSet{sinks: map[chan StatusEvent]struct{}{}})
	set := v.(*subscriberSet)

	ch := make(chan StatusEvent, 4)
	set.mu.Lock()
	set.sinks[ch] = struct{}{}
	set.mu.Unlock()

	return ch, func() {
		set.mu.Lock()
		delete(set.sinks, ch)
		set.mu.Unlock()
	}
}

// Publish delivers an event to every subscriber of a worker. Delivery never
// blocks: a sink whose buffer is full is dropped and unregistered.
func (b *Broadcaster) Publish(workerID string, ev StatusEvent) {
	v, ok := b.subscribers.Load(workerID)
	if !ok {
		return
	}
	set := v.(*subscriberSet)

	set.mu.Lock()
	defer set.mu.Unlock()
	for ch := range set.sinks {
		select {
		case ch <- ev:
		default:
			delete(set.sinks, ch)
		}
	}
}
