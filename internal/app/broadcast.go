package app

import (
	"fmt"
	"log/slog"

	"suspect/internal/domain"
)

// Broadcaster fans messages out to the live connections of a match
type Broadcaster struct {
	conns  *ConnectionRegistry
	logger *slog.Logger
}

// NewBroadcaster creates a broadcaster over a connection registry
func NewBroadcaster(conns *ConnectionRegistry, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		conns:  conns,
		logger: logger,
	}
}

// Deliver sends an event to its match or, if player-specific, to that player
func (b *Broadcaster) Deliver(event *domain.Event) {
	if event.IsPrivate() {
		if err := b.SendPrivate(event.MatchCode, event.PlayerID, event.Message); err != nil {
			b.logger.Debug("private delivery failed",
				"matchCode", event.MatchCode,
				"playerID", event.PlayerID,
				"error", err,
			)
		}
		return
	}
	b.Broadcast(event.MatchCode, event.Message)
}

// Broadcast sends a message to every live connection of a match and returns
// how many sends succeeded. Connections whose send fails are pruned once the
// pass is over.
func (b *Broadcaster) Broadcast(matchCode string, message interface{}) int {
	var failed []Connection
	delivered := 0

	for _, conn := range b.conns.Connections(matchCode) {
		if err := conn.Send(message); err != nil {
			b.logger.Debug("failed to send to client", "matchCode", matchCode, "connID", conn.ID(), "error", err)
			failed = append(failed, conn)
			continue
		}
		delivered++
	}

	b.prune(matchCode, failed)
	return delivered
}

// SendPrivate sends a message to one connection of a player
func (b *Broadcaster) SendPrivate(matchCode, playerID string, message interface{}) error {
	conn, ok := b.conns.PlayerConnection(matchCode, playerID)
	if !ok {
		return fmt.Errorf("no live connection for player %s: %w", playerID, domain.ErrPlayerNotFound)
	}

	if err := conn.Send(message); err != nil {
		b.prune(matchCode, []Connection{conn})
		return fmt.Errorf("%w: %v", domain.ErrTransportFailure, err)
	}
	return nil
}

func (b *Broadcaster) prune(matchCode string, failed []Connection) {
	if len(failed) == 0 {
		return
	}

	ids := make([]string, 0, len(failed))
	for _, conn := range failed {
		ids = append(ids, conn.ID())
	}
	b.conns.Prune(matchCode, ids)

	for _, conn := range failed {
		if err := conn.Close(); err != nil {
			b.logger.Debug("failed to close pruned connection", "connID", conn.ID(), "error", err)
		}
	}
	b.logger.Info("pruned connections", "matchCode", matchCode, "count", len(failed))
}
