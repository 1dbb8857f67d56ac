// Package queue defines message payloads exchanged over the message broker
// together with the RabbitMQ publisher and the audit consumer.
package queue

import "time"

// Queue names double as event types.  Each event type is routed through
// the default exchange to the durable queue of the same name.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking is confirmed or cancelled.
// It carries enough information for downstream consumers to log, notify or
// trigger analytics without querying the primary database.
type BookingEvent struct {
	Type        string `json:"type"`
	BookingID   uint64 `json:"booking_id"`
	UserID      uint64 `json:"user_id"`
	BusID       uint64 `json:"bus_id"`
	BusNumber   string `json:"bus_number"`
	SeatNumbers []int  `json:"seats"`
	TotalFare   string `json:"total_fare"`
	OccurredAt  string `json:"occurred_at"`
}

// NewBookingEvent builds an event stamped with the current UTC time.
func NewBookingEvent(eventType string, bookingID, userID, busID uint64, busNumber string, seats []int, totalFare string) BookingEvent {
	return BookingEvent{
		Type:        eventType,
		BookingID:   bookingID,
		UserID:      userID,
		BusID:       busID,
		BusNumber:   busNumber,
		SeatNumbers: seats,
		TotalFare:   totalFare,
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
}
