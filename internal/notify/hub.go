// Package notify pushes seat map snapshots to live subscribers.
//
// Booking mutations call Notify with the affected bus id after commit.  The
// signal travels through an in-process watermill channel (and optionally
// Redis, to reach other instances) to the Hub, which recomputes the seat
// map once and hands the encoded snapshot to every subscriber of the bus.
package notify

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/view"
)

// Snapshotter computes the current seat map of a bus.
type Snapshotter interface {
	SeatMap(ctx context.Context, busID uint64) ([]model.SeatStatus, error)
}

// Subscriber is a live connection interested in one bus.  Send must not
// block; it reports false when the message could not be queued, after
// which the hub drops and closes the subscriber.
type Subscriber interface {
	ID() string
	Send(msg []byte) bool
	Close()
}

// Hub is the subscription registry.  It is safe for concurrent use;
// broadcasts iterate over a copy of the subscriber set so connects and
// disconnects never race with delivery.
//
// Snapshot-and-send runs under a per-bus lock, so messages for one bus go
// out in the order their snapshots were computed and every subscriber's
// last message is the newest seat map.
type Hub struct {
	mu    sync.RWMutex
	subs  map[uint64]map[string]Subscriber
	locks map[uint64]*sync.Mutex
	snap  Snapshotter
	log   *zap.Logger
}

func NewHub(snap Snapshotter, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs:  make(map[uint64]map[string]Subscriber),
		locks: make(map[uint64]*sync.Mutex),
		snap:  snap,
		log:   log,
	}
}

// Subscribe registers sub for busID and immediately sends it the current
// snapshot.  A broadcast for the same bus waits until that first snapshot
// is delivered.
func (h *Hub) Subscribe(ctx context.Context, busID uint64, sub Subscriber) error {
	bl := h.busLock(busID)
	bl.Lock()
	defer bl.Unlock()

	h.mu.Lock()
	set, ok := h.subs[busID]
	if !ok {
		set = make(map[string]Subscriber)
		h.subs[busID] = set
	}
	set[sub.ID()] = sub
	h.mu.Unlock()

	msg, err := h.snapshot(ctx, busID)
	if err != nil {
		h.Unsubscribe(busID, sub.ID())
		return err
	}
	if !sub.Send(msg) {
		h.drop(busID, sub)
	}
	return nil
}

// Unsubscribe removes the subscriber.  Unknown ids are ignored.
func (h *Hub) Unsubscribe(busID uint64, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[busID]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(h.subs, busID)
	}
}

// Broadcast pushes a fresh snapshot to every subscriber of busID.
// Delivery failures remove the subscriber and are never returned; the
// only error is a failure to compute the snapshot.
func (h *Hub) Broadcast(ctx context.Context, busID uint64) error {
	// A subscriber registering after this check snapshots after the
	// mutation that triggered the broadcast.
	if h.Count(busID) == 0 {
		return nil
	}
	bl := h.busLock(busID)
	bl.Lock()
	defer bl.Unlock()

	targets := h.subscribers(busID)
	if len(targets) == 0 {
		return nil
	}
	msg, err := h.snapshot(ctx, busID)
	if err != nil {
		return err
	}
	for _, sub := range targets {
		if !sub.Send(msg) {
			h.drop(busID, sub)
		}
	}
	h.log.Debug("seat map pushed", zap.Uint64("bus_id", busID), zap.Int("subscribers", len(targets)))
	return nil
}

// Count returns the number of subscribers of busID.
func (h *Hub) Count(busID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[busID])
}

// busLock returns the mutex serializing pushes for busID.  Entries are
// kept for the life of the hub; there is one per bus ever watched.
func (h *Hub) busLock(busID uint64) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.locks[busID]
	if !ok {
		l = &sync.Mutex{}
		h.locks[busID] = l
	}
	return l
}

func (h *Hub) subscribers(busID uint64) []Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.subs[busID]
	out := make([]Subscriber, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	return out
}

func (h *Hub) drop(busID uint64, sub Subscriber) {
	h.Unsubscribe(busID, sub.ID())
	sub.Close()
	h.log.Info("subscriber dropped", zap.Uint64("bus_id", busID), zap.String("client_id", sub.ID()))
}

func (h *Hub) snapshot(ctx context.Context, busID uint64) ([]byte, error) {
	seats, err := h.snap.SeatMap(ctx, busID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(view.NewSeatStatusMessage(seats))
}
