package notify

import (
	"context"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// TopicSeatChanged carries the id of a bus whose seat map changed.
const TopicSeatChanged = "seat.changed"

// Broadcaster pushes the current snapshot of a bus to its subscribers.
type Broadcaster interface {
	Broadcast(ctx context.Context, busID uint64) error
}

// Dispatcher decouples committers from subscriber delivery.  Notify only
// enqueues on an in-process watermill channel; Run consumes the signals
// one at a time and drives the broadcaster.
type Dispatcher struct {
	pubsub *gochannel.GoChannel
	target Broadcaster
	log    *zap.Logger
}

func NewDispatcher(target Broadcaster, wlog watermill.LoggerAdapter, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if wlog == nil {
		wlog = watermill.NopLogger{}
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, wlog)
	return &Dispatcher{pubsub: pubsub, target: target, log: log}
}

// Notify signals that busID changed.  It never blocks on delivery.
func (d *Dispatcher) Notify(busID uint64) {
	msg := message.NewMessage(watermill.NewUUID(), []byte(strconv.FormatUint(busID, 10)))
	if err := d.pubsub.Publish(TopicSeatChanged, msg); err != nil {
		d.log.Warn("seat change signal dropped", zap.Uint64("bus_id", busID), zap.Error(err))
	}
}

// Run subscribes to seat change signals and blocks until ctx is done.
// ready, when non-nil, is closed once the subscription is active.
func (d *Dispatcher) Run(ctx context.Context, ready chan<- struct{}) error {
	messages, err := d.pubsub.Subscribe(ctx, TopicSeatChanged)
	if err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}
	for msg := range messages {
		busID, err := strconv.ParseUint(string(msg.Payload), 10, 64)
		if err != nil {
			d.log.Warn("malformed seat change signal", zap.ByteString("payload", msg.Payload))
			msg.Ack()
			continue
		}
		if err := d.target.Broadcast(ctx, busID); err != nil && ctx.Err() == nil {
			d.log.Error("seat map broadcast failed", zap.Uint64("bus_id", busID), zap.Error(err))
		}
		msg.Ack()
	}
	return ctx.Err()
}

// Close shuts the underlying channel down.
func (d *Dispatcher) Close() error { return d.pubsub.Close() }
