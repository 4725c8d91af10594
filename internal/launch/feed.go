// Package launch defines the application launch event feed and its
// process-table implementation.
package launch

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Event reports that an application started.
type Event struct {
	// BundleID is the stable application identity matched against configs.
	BundleID string
	// Name is a human-readable process or application name.
	Name string
	PID  int32
	Exe  string
	Time time.Time
}

// Handler receives launch events. It may be called from any goroutine.
type Handler func(Event)

// Feed delivers launch events to subscribers.
type Feed interface {
	// Subscribe starts delivering events to h until the subscription is
	// cancelled or ctx is done.
	Subscribe(ctx context.Context, h Handler) (Subscription, error)
}

// Subscription is a handle on an active Subscribe call.
type Subscription interface {
	// Unsubscribe stops delivery. It is safe to call more than once.
	Unsubscribe() error
}

// SubscriptionFunc adapts a stop function into a Subscription that runs it once.
func SubscriptionFunc(stop func() error) Subscription {
	return &onceSubscription{stop: stop}
}

type onceSubscription struct {
	once sync.Once
	stop func() error
	err  error
}

func (s *onceSubscription) Unsubscribe() error {
	s.once.Do(func() {
		if s.stop != nil {
			s.err = s.stop()
		}
	})
	return s.err
}

// ManualFeed is a Feed driven by Emit. It is useful for tests and for
// injecting events from other sources.
type ManualFeed struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	next     int
}

// NewManualFeed creates an empty ManualFeed.
func NewManualFeed() *ManualFeed {
	return &ManualFeed{handlers: make(map[int]Handler)}
}

// Subscribe registers h until unsubscribed or ctx is done.
func (f *ManualFeed) Subscribe(ctx context.Context, h Handler) (Subscription, error) {
	f.mu.Lock()
	id := f.next
	f.next++
	f.handlers[id] = h
	f.mu.Unlock()

	remove := func() error {
		f.mu.Lock()
		delete(f.handlers, id)
		f.mu.Unlock()
		return nil
	}

	sub := SubscriptionFunc(remove)
	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			_ = sub.Unsubscribe()
		}()
	}
	return sub, nil
}

// Emit delivers e synchronously to every subscriber.
func (f *ManualFeed) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	f.mu.RLock()
	handlers := make([]Handler, 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// Subscribers returns the number of active subscriptions.
func (f *ManualFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.handlers)
}

// Merge returns a Feed that subscribes to every feed in feeds. Subscribe
// fails, and undoes earlier subscriptions, if any of them fails.
func Merge(feeds ...Feed) Feed {
	return mergedFeed(feeds)
}

type mergedFeed []Feed

func (m mergedFeed) Subscribe(ctx context.Context, h Handler) (Subscription, error) {
	subs := make([]Subscription, 0, len(m))
	unsubscribeAll := func() error {
		var errs []error
		for _, s := range subs {
			if err := s.Unsubscribe(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	for _, f := range m {
		s, err := f.Subscribe(ctx, h)
		if err != nil {
			_ = unsubscribeAll()
			return nil, err
		}
		subs = append(subs, s)
	}
	return SubscriptionFunc(unsubscribeAll), nil
}
