package notify

import (
	"log/slog"

	"auction_go/internal/domain"
)

// Fanout delivers each event to every sink in order. Sinks must not block.
type Fanout []domain.EventSink

// Publish implements domain.EventSink.
func (f Fanout) Publish(ev domain.Event) {
	for _, s := range f {
		s.Publish(ev)
	}
}

// LogSink writes every domain event to the structured log, giving the log
// file a complete audit trail independent of connected subscribers.
type LogSink struct{}

// Publish implements domain.EventSink.
func (LogSink) Publish(ev domain.Event) {
	slog.Info("domain event",
		slog.String("type", string(ev.Type)),
		slog.String("auction_id", ev.AuctionID),
		slog.String("user_id", ev.UserID),
		slog.String("amount", ev.Amount.String()))
}
