// Package auth holds the client-side authentication state and the credential
// helpers used by the local backend.
package auth

import (
	"sync"

	"expensedocs/internal/core"
)

// Listener receives every authentication state transition.
type Listener func(event core.AuthEvent, session *core.Session)

type notification struct {
	event   core.AuthEvent
	session *core.Session
}

// State holds the current session and fans out transitions to subscribers.
// Each subscriber gets its own goroutine and sees events in arrival order.
type State struct {
	mu      sync.Mutex
	current *core.Session
	subs    map[uint64]*Subscription
	nextID  uint64
}

func NewState() *State {
	return &State{subs: make(map[uint64]*Subscription)}
}

// Current returns a copy of the current session, or nil when signed out.
func (s *State) Current() *core.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSession(s.current)
}

// Set records a new session (nil when signed out) and notifies subscribers.
func (s *State) Set(event core.AuthEvent, session *core.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = cloneSession(session)
	for _, sub := range s.subs {
		sub.enqueue(notification{event: event, session: cloneSession(session)})
	}
}

// Subscribe registers fn. The first event delivered is INITIAL_SESSION with
// the session held at subscription time.
func (s *State) Subscribe(fn Listener) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sub := &Subscription{
		id:    s.nextID,
		state: s,
		fn:    fn,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	s.subs[sub.id] = sub
	sub.enqueue(notification{event: core.AuthInitialSession, session: cloneSession(s.current)})
	go sub.run()
	return sub
}

// Subscribers returns the number of active subscriptions.
func (s *State) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close cancels every subscription.
func (s *State) Close() {
	s.mu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

func (s *State) remove(id uint64) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id    uint64
	state *State
	fn    Listener

	mu    sync.Mutex
	queue []notification
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// Unsubscribe stops delivery. Events still queued are dropped.
func (sub *Subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.state.remove(sub.id)
		close(sub.done)
	})
}

func (sub *Subscription) enqueue(n notification) {
	sub.mu.Lock()
	sub.queue = append(sub.queue, n)
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *Subscription) run() {
	for {
		select {
		case <-sub.done:
			return
		case <-sub.wake:
		}

		for {
			sub.mu.Lock()
			if len(sub.queue) == 0 {
				sub.mu.Unlock()
				break
			}
			n := sub.queue[0]
			sub.queue = sub.queue[1:]
			sub.mu.Unlock()

			select {
			case <-sub.done:
				return
			default:
			}
			sub.fn(n.event, n.session)
		}
	}
}

func cloneSession(s *core.Session) *core.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
