package state

import "sync"

// bus delivers events to every subscriber from a single goroutine. The
// queue is unbounded so handlers can publish while being called.
type bus struct {
	mu       sync.Mutex
	queue    []any
	inFlight int
	handlers []func(event any)

	signal chan struct{}
	shut   chan struct{}
	wg     sync.WaitGroup
}

func newBus() *bus {
	return &bus{
		signal: make(chan struct{}, 1),
		shut:   make(chan struct{}),
	}
}

// subscribe must be called before run.
func (b *bus) subscribe(handler func(event any)) {
	b.handlers = append(b.handlers, handler)
}

// Publish implements the election.Publisher interface.
func (b *bus) Publish(event any) {
	b.mu.Lock()
	b.queue = append(b.queue, event)
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// run starts the dispatcher goroutine.
func (b *bus) run() {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		for {
			select {
			case <-b.signal:
				b.drain()
			case <-b.shut:
				b.drain()
				return
			}
		}
	}()
}

// drain delivers events until the queue is empty.
func (b *bus) drain() {
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return
		}
		event := b.queue[0]
		b.queue[0] = nil
		b.queue = b.queue[1:]
		b.inFlight++
		b.mu.Unlock()

		for _, handler := range b.handlers {
			handler(event)
		}

		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
	}
}

// pending returns the number of events queued or being delivered.
func (b *bus) pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.queue) + b.inFlight
}

// shutdown delivers what's queued and stops the dispatcher.
func (b *bus) shutdown() {
	close(b.shut)
	b.wg.Wait()
}
