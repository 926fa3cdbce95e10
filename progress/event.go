package progress

import "sync"

// EventName is the channel progress events are emitted on.
const EventName = "update-progress-text"

// Payload is the body of a progress event.
type Payload struct {
	Message  string `json:"message"`
	Progress int    `json:"progress"`
}

// Event is a named payload with the run it belongs to.
type Event struct {
	Name    string  `json:"event"`
	RunID   string  `json:"run_id,omitempty"`
	Payload Payload `json:"payload"`
}

// Emitter publishes events to the UI.
type Emitter interface {
	Emit(e Event)
}

// EventNotifier forwards stages to an Emitter.
type EventNotifier struct {
	Emitter Emitter

	// RunID tags every event
	RunID string
}

// Stage emits an "update-progress-text" event.
func (n *EventNotifier) Stage(text string, percent int) {
	if n.Emitter == nil {
		return
	}
	n.Emitter.Emit(Event{
		Name:    EventName,
		RunID:   n.RunID,
		Payload: Payload{Message: text, Progress: Clamp(percent)},
	})
}

// Broker is an Emitter that fans events out to subscribers. Emit never
// blocks: a subscriber whose buffer is full misses the event.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	buffer int
	drops  int
}

// NewBroker returns a Broker whose subscribers buffer up to buffer events.
func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = 1
	}
	return &Broker{subs: make(map[chan Event]struct{}), buffer: buffer}
}

// Subscribe registers a subscriber. The returned function unsubscribes and
// closes the channel.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Emit delivers e to every subscriber with room in its buffer.
func (b *Broker) Emit(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.drops++
		}
	}
}

// Subscribers returns the number of active subscribers.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped for full subscribers.
func (b *Broker) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drops
}
