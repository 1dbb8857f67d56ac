package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/notify"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/reservation"
)

// WSHandler upgrades seat map subscriptions to websockets.
type WSHandler struct {
	Hub       *notify.Hub
	Buses     *repository.BusRepo
	QueueSize int
	Log       *zap.Logger

	upgrader websocket.Upgrader
}

func NewWSHandler(hub *notify.Hub, buses *repository.BusRepo, queueSize int, log *zap.Logger) *WSHandler {
	if hub == nil || buses == nil {
		panic("nil dependency passed to NewWSHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		Hub:       hub,
		Buses:     buses,
		QueueSize: queueSize,
		Log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Seat maps are public data.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// SeatUpdates streams seat map snapshots of one bus until the peer
// disconnects.  The first message is sent right after the upgrade.
func (h *WSHandler) SeatUpdates(c echo.Context) error {
	id, ok := pathID(c, "bus_id")
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Bus not found"})
	}
	ctx, cancel := requestCtx(c)
	_, err := h.Buses.GetByID(ctx, id)
	cancel()
	if err != nil {
		if errors.Is(err, reservation.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Bus not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already replied
		h.Log.Debug("websocket upgrade failed", zap.Error(err))
		return nil
	}
	client := notify.NewClient(conn, h.QueueSize)
	go client.WritePump()

	subCtx, subCancel := context.WithTimeout(context.Background(), requestTimeout)
	err = h.Hub.Subscribe(subCtx, id, client)
	subCancel()
	if err != nil {
		h.Log.Warn("initial snapshot failed", zap.Uint64("bus_id", id), zap.Error(err))
		client.Close()
		return nil
	}
	h.Log.Info("subscriber connected", zap.Uint64("bus_id", id), zap.String("client_id", client.ID()))

	client.ReadPump()
	h.Hub.Unsubscribe(id, client.ID())
	h.Log.Info("subscriber disconnected", zap.Uint64("bus_id", id), zap.String("client_id", client.ID()))
	return nil
}
