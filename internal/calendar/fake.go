package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Fake is an in-memory Gateway for tests. It mimics the upstream contract,
// including "already gone counts as success" on delete.
type Fake struct {
	mu     sync.Mutex
	nextID int
	events map[string]Event

	// Err, when set, is returned by every call to simulate transport failure.
	Err error
}

// NewFake returns an empty in-memory calendar.
func NewFake() *Fake {
	return &Fake{events: make(map[string]Event)}
}

// Put inserts or replaces an event directly, bypassing the Gateway contract.
// Test setup helper.
func (f *Fake) Put(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[ev.ID] = ev
}

// Remove deletes an event directly, simulating an out-of-band deletion.
func (f *Fake) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.events, id)
}

func (f *Fake) ListEvents(_ context.Context, from, to time.Time) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	var out []Event
	for _, ev := range f.events {
		if ev.Cancelled() {
			continue
		}
		if ev.Start.Before(to) && from.Before(ev.End) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (f *Fake) CreateEvent(_ context.Context, draft Draft) (*Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	f.nextID++
	ev := Event{
		ID:          fmt.Sprintf("evt%06d", f.nextID),
		Summary:     draft.Summary,
		Description: draft.Description,
		Start:       draft.Start,
		End:         draft.End,
		Status:      "confirmed",
	}
	f.events[ev.ID] = ev
	return &ev, nil
}

func (f *Fake) GetEvent(_ context.Context, id string) (*Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	ev, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	return &ev, nil
}

func (f *Fake) PatchEventTime(_ context.Context, id string, start, end time.Time) (*Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	ev, ok := f.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	ev.Start = start
	ev.End = end
	f.events[id] = ev
	return &ev, nil
}

func (f *Fake) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	delete(f.events, id)
	return nil
}

var _ Gateway = (*Fake)(nil)
