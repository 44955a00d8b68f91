package app

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"suspect/internal/domain"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestHub creates a hub with a short reveal delay and seeded randomness
func newTestHub(t *testing.T, revealDelay time.Duration) *MatchHub {
	t.Helper()

	opts := DefaultHubOptions()
	opts.RevealDelay = revealDelay
	hub := NewMatchHub(opts, discardLogger())

	seed := int64(0)
	hub.newRand = func() *rand.Rand {
		seed++
		return rand.New(rand.NewSource(seed))
	}

	t.Cleanup(hub.Close)
	return hub
}

// fakeConn records every message sent to it. A non-nil gate holds every
// send until it is closed.
type fakeConn struct {
	id     string
	gate   chan struct{}
	mu     sync.Mutex
	msgs   []interface{}
	fail   bool
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(message interface{}) error {
	if c.gate != nil {
		<-c.gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fail {
		return errors.New("broken pipe")
	}
	c.msgs = append(c.msgs, message)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) messages() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interface{}(nil), c.msgs...)
}

func (c *fakeConn) phases() []domain.Phase {
	var phases []domain.Phase
	for _, m := range c.messages() {
		if pc, ok := m.(*domain.PhaseChange); ok {
			phases = append(phases, pc.Phase)
		}
	}
	return phases
}

func (c *fakeConn) roleAssignments() []string {
	var roles []string
	for _, m := range c.messages() {
		if ra, ok := m.(*domain.RoleAssignmentMessage); ok {
			roles = append(roles, ra.Role)
		}
	}
	return roles
}

func (c *fakeConn) reveals() []*domain.RevealResultMessage {
	var reveals []*domain.RevealResultMessage
	for _, m := range c.messages() {
		if rr, ok := m.(*domain.RevealResultMessage); ok {
			reveals = append(reveals, rr)
		}
	}
	return reveals
}

func (c *fakeConn) gameOvers() []*domain.GameOverMessage {
	var overs []*domain.GameOverMessage
	for _, m := range c.messages() {
		if g, ok := m.(*domain.GameOverMessage); ok {
			overs = append(overs, g)
		}
	}
	return overs
}

func (c *fakeConn) lastPhase() domain.Phase {
	phases := c.phases()
	if len(phases) == 0 {
		return ""
	}
	return phases[len(phases)-1]
}

// seat joins a player and attaches a fake connection for them
func seat(t *testing.T, s *MatchSession, name string) (*domain.Player, *fakeConn) {
	t.Helper()

	player, err := s.Join(name)
	require.NoError(t, err)

	conn := newFakeConn("conn-" + name)
	require.NoError(t, s.Attach(player.ID, conn))
	return player, conn
}

// startVoting proposes, starts and readies everyone
func startVoting(t *testing.T, s *MatchSession, players []*domain.Player) {
	t.Helper()

	require.NoError(t, s.Propose(players[0].ID, "Elon Musk"))
	_, err := s.Start()
	require.NoError(t, err)
	for _, p := range players {
		require.NoError(t, s.SetReadiness(p.ID, true))
	}
	require.Equal(t, domain.PhaseVoting, s.GetPhase())
}

func impostorOf(s *MatchSession) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.match.Players {
		if p.Role.IsImpostor() {
			return id
		}
	}
	return ""
}
