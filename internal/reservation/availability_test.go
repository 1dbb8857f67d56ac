package reservation

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

func TestAvailableCountsPerBus(t *testing.T) {
	svc, store, _ := newTestService()
	avail := NewAvailability(store)
	ctx := context.Background()

	sleeper, s1 := store.addBus(3, true, "0", "10", "10")
	seater, _ := store.addBus(2, false, "10", "0", "0")
	if _, err := svc.Reserve(ctx, 1, sleeper.ID, []uint64{s1[0].ID, s1[3].ID}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	counts, err := avail.AvailableCounts(ctx, []model.Bus{sleeper, seater})
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[sleeper.ID] != 4 || counts[seater.ID] != 6 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestSeatMapUnknownBus(t *testing.T) {
	avail := NewAvailability(newMemStore())
	if _, err := avail.SeatMap(context.Background(), 42); !errors.Is(err, ErrBusNotFound) {
		t.Fatalf("expected ErrBusNotFound, got %v", err)
	}
}
