package epiworld

// EveryDay is the sentinel Day value meaning "run on every day of the run"
// rather than a single scheduled day.
const EveryDay = -1

// GlobalEvent is a callback run after the day's state updates and event
// flush, either on a single scheduled day or on every day.
type GlobalEvent struct {
	Name string
	Day  int
	Fn   func(model *Model)
}

// GlobalEventBus holds the model's registered global events.
type GlobalEventBus struct {
	events []*GlobalEvent
}

// NewGlobalEventBus creates an empty bus.
func NewGlobalEventBus() *GlobalEventBus { return &GlobalEventBus{} }

// Add registers a new global event.
func (b *GlobalEventBus) Add(e *GlobalEvent) { b.events = append(b.events, e) }

// Remove deletes a previously registered event by name, so a campaign can
// be retired mid-run.
func (b *GlobalEventBus) Remove(name string) {
	out := b.events[:0]
	for _, e := range b.events {
		if e.Name != name {
			out = append(out, e)
		}
	}
	b.events = out
}

// Run invokes every event scheduled for day, or with Day == EveryDay.
func (b *GlobalEventBus) Run(day int, model *Model) {
	for _, e := range b.events {
		if e.Day == EveryDay || e.Day == day {
			e.Fn(model)
		}
	}
}

// Copy deep-copies the event list (the Fn closures are shared by reference,
// consistent with how presets attach stateless closures over parameter
// indices rather than per-replicate state).
func (b *GlobalEventBus) Copy() *GlobalEventBus {
	n := &GlobalEventBus{events: make([]*GlobalEvent, len(b.events))}
	copy(n.events, b.events)
	return n
}
