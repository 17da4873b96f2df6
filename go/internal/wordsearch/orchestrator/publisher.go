package orchestrator

import "github.com/etruxton/for-you-puzzles/go/internal/wordsearch/events"

// Publisher receives lifecycle events. Publish is called with the scheduler lock held and
// must not block or call back into the scheduler.
type Publisher interface {
	Publish(evt events.Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(evt events.Event)

func (f PublisherFunc) Publish(evt events.Event) { f(evt) }

// FanOut publishes every event to each of its publishers in order.
type FanOut []Publisher

func (f FanOut) Publish(evt events.Event) {
	for _, p := range f {
		if p != nil {
			p.Publish(evt)
		}
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(events.Event) {}
