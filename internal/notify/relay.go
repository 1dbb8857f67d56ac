package notify

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RelayChannel is the Redis pub/sub channel carrying seat change signals
// between instances.
const RelayChannel = "seat-updates"

const relayPublishTimeout = time.Second

// LocalNotifier is the in-process half of the relay.
type LocalNotifier interface {
	Notify(busID uint64)
}

// Relay fans seat change signals out across instances: Notify publishes
// to Redis and Run delivers every signal seen on the channel, including
// this instance's own, to the local notifier.  If Redis rejects a
// publish the signal is delivered locally so this instance's viewers
// still converge.
type Relay struct {
	rdb   *redis.Client
	local LocalNotifier
	log   *zap.Logger
}

func NewRelay(rdb *redis.Client, local LocalNotifier, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{rdb: rdb, local: local, log: log}
}

// Notify publishes asynchronously so callers never wait on Redis.
func (r *Relay) Notify(busID uint64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
		defer cancel()
		if err := r.rdb.Publish(ctx, RelayChannel, strconv.FormatUint(busID, 10)).Err(); err != nil {
			r.log.Warn("redis relay publish failed, notifying locally", zap.Uint64("bus_id", busID), zap.Error(err))
			r.local.Notify(busID)
		}
	}()
}

// Run forwards relayed signals to the local notifier until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, RelayChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			busID, err := strconv.ParseUint(m.Payload, 10, 64)
			if err != nil {
				r.log.Warn("malformed relayed signal", zap.String("payload", m.Payload))
				continue
			}
			r.local.Notify(busID)
		}
	}
}
