package app

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suspect/internal/domain"
)

func TestMatchScenario(t *testing.T) {
	hub := newTestHub(t, 20*time.Millisecond)
	s, err := hub.CreateMatch()
	require.NoError(t, err)

	a, connA := seat(t, s, "A")
	b, connB := seat(t, s, "B")
	c, connC := seat(t, s, "C")
	conns := []*fakeConn{connA, connB, connC}

	assert.True(t, a.Host)
	assert.False(t, b.Host)
	assert.False(t, c.Host)

	require.NoError(t, s.Propose(a.ID, "Elon Musk"))

	phase, err := hub.StartMatch(s.GetMatchCode())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseRoleAssignment, phase)

	// Every player gets exactly one private reveal
	require.Eventually(t, func() bool {
		for _, conn := range conns {
			if len(conn.roleAssignments()) != 1 {
				return false
			}
		}
		return true
	}, waitFor, tick)

	var impostors, identities int
	for _, conn := range conns {
		switch role := conn.roleAssignments()[0]; role {
		case "impostor":
			impostors++
		case "Elon Musk":
			identities++
		default:
			t.Fatalf("unexpected role %q", role)
		}
	}
	assert.Equal(t, 1, impostors)
	assert.Equal(t, 2, identities)

	for _, p := range []*domain.Player{a, b, c} {
		require.NoError(t, s.SetReadiness(p.ID, true))
	}
	assert.Equal(t, domain.PhaseVoting, s.GetPhase())

	require.NoError(t, s.CastVote(a.ID, b.ID))
	require.NoError(t, s.CastVote(b.ID, c.ID))
	require.NoError(t, s.CastVote(c.ID, b.ID))

	require.Eventually(t, func() bool { return len(connC.reveals()) == 1 }, waitFor, tick)
	reveal := connC.reveals()[0]
	assert.Equal(t, b.ID, reveal.EliminatedPlayer)
	assert.Equal(t, "B", reveal.EliminatedPlayerName)

	bWasImpostor := impostorOf(s) == b.ID
	if bWasImpostor {
		assert.Equal(t, domain.RoleImpostor, reveal.EliminatedPlayerRole)
	} else {
		assert.Equal(t, domain.RoleNormal, reveal.EliminatedPlayerRole)
	}

	// Two alive players remain, so the match always ends: either the
	// impostor is gone, or one impostor is half of two.
	require.Eventually(t, func() bool { return connA.lastPhase() == domain.PhaseGameOver }, waitFor, tick)
	require.Len(t, connA.gameOvers(), 1)
	if bWasImpostor {
		assert.Equal(t, domain.WinnerNormal, connA.gameOvers()[0].Winner)
	} else {
		assert.Equal(t, domain.WinnerImpostor, connA.gameOvers()[0].Winner)
	}

	assert.Equal(t, []domain.Phase{
		domain.PhaseRoleAssignment,
		domain.PhaseVoting,
		domain.PhaseReveal,
		domain.PhaseGameOver,
	}, connA.phases())

	info := s.Snapshot()
	assert.Equal(t, domain.PhaseGameOver, info.Phase)
	assert.Equal(t, 1, info.Round)
}

func TestNextRoundAfterNormalEliminated(t *testing.T) {
	hub := newTestHub(t, 20*time.Millisecond)
	s, err := hub.CreateMatch()
	require.NoError(t, err)

	players := make([]*domain.Player, 5)
	var watcher *fakeConn
	for i := range players {
		players[i], watcher = seat(t, s, fmt.Sprintf("P%d", i))
	}
	startVoting(t, s, players)

	impostor := impostorOf(s)
	var target string
	for _, p := range players {
		if p.ID != impostor {
			target = p.ID
			break
		}
	}

	for _, p := range players {
		require.NoError(t, s.CastVote(p.ID, target))
	}
	assert.Equal(t, domain.PhaseReveal, s.GetPhase())

	require.Eventually(t, func() bool { return s.GetPhase() == domain.PhaseRound }, waitFor, tick)
	assert.Equal(t, 2, s.Snapshot().Round)
	require.Eventually(t, func() bool { return watcher.lastPhase() == domain.PhaseRound }, waitFor, tick)
	assert.Empty(t, watcher.gameOvers())

	// The next round runs on the alive players only
	for _, p := range players {
		err := s.SetReadiness(p.ID, true)
		if p.ID == target {
			assert.ErrorIs(t, err, domain.ErrPlayerEliminated)
		} else {
			assert.NoError(t, err)
		}
	}
	assert.Equal(t, domain.PhaseVoting, s.GetPhase())
}

func TestDuplicateVoteIsIgnored(t *testing.T) {
	hub := newTestHub(t, time.Hour)
	s, err := hub.CreateMatch()
	require.NoError(t, err)

	players := make([]*domain.Player, 3)
	for i := range players {
		players[i], _ = seat(t, s, fmt.Sprintf("P%d", i))
	}
	startVoting(t, s, players)

	require.NoError(t, s.CastVote(players[0].ID, players[1].ID))
	err = s.CastVote(players[0].ID, players[2].ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	s.mu.Lock()
	assert.Equal(t, map[string]string{players[0].ID: players[1].ID}, s.match.Votes)
	s.mu.Unlock()
}

func TestConcurrentVotesResolveOnce(t *testing.T) {
	hub := newTestHub(t, 30*time.Millisecond)
	s, err := hub.CreateMatch()
	require.NoError(t, err)

	players := make([]*domain.Player, 6)
	var watcher *fakeConn
	for i := range players {
		players[i], watcher = seat(t, s, fmt.Sprintf("P%d", i))
	}
	startVoting(t, s, players)

	var wg sync.WaitGroup
	for _, voter := range players {
		for _, target := range players {
			wg.Add(1)
			go func(voter, target string) {
				defer wg.Done()
				_ = s.CastVote(voter, target)
			}(voter.ID, target.ID)
		}
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		phase := s.GetPhase()
		return phase == domain.PhaseRound || phase == domain.PhaseGameOver
	}, waitFor, tick)
	require.Eventually(t, func() bool {
		last := watcher.lastPhase()
		return last == domain.PhaseRound || last == domain.PhaseGameOver
	}, waitFor, tick)

	assert.Len(t, watcher.reveals(), 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.match.Votes)
	dead := 0
	for _, p := range s.match.Players {
		if !p.Alive {
			dead++
		}
	}
	assert.Equal(t, 1, dead)
}

func TestConcurrentJoinAndLeaveKeepOneHost(t *testing.T) {
	hub := newTestHub(t, time.Hour)
	hub.opts.Settings.MaxPlayers = domain.MaxPlayersCeiling
	s, err := hub.CreateMatch()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := s.Join(fmt.Sprintf("P%d", i))
			if err != nil {
				return
			}
			if i%2 == 0 {
				_ = s.Leave(p.ID)
			}
		}(i)
	}
	wg.Wait()

	info := s.Snapshot()
	require.Len(t, info.Players, 15)
	hosts := 0
	for _, p := range info.Players {
		if p.Host {
			hosts++
		}
	}
	assert.Equal(t, 1, hosts)
}

func TestDepartureCompletesVoting(t *testing.T) {
	hub := newTestHub(t, time.Hour)
	s, err := hub.CreateMatch()
	require.NoError(t, err)

	players := make([]*domain.Player, 4)
	for i := range players {
		players[i], _ = seat(t, s, fmt.Sprintf("P%d", i))
	}
	startVoting(t, s, players)

	require.NoError(t, s.CastVote(players[0].ID, players[1].ID))
	require.NoError(t, s.CastVote(players[1].ID, players[2].ID))
	require.NoError(t, s.CastVote(players[2].ID, players[1].ID))
	assert.Equal(t, domain.PhaseVoting, s.GetPhase())

	require.NoError(t, s.Leave(players[3].ID))
	assert.Equal(t, domain.PhaseReveal, s.GetPhase())
}

func TestDepartureStartsVoting(t *testing.T) {
	hub := newTestHub(t, time.Hour)
	s, err := hub.CreateMatch()
	require.NoError(t, err)

	players := make([]*domain.Player, 4)
	for i := range players {
		players[i], _ = seat(t, s, fmt.Sprintf("P%d", i))
	}
	require.NoError(t, s.Propose(players[0].ID, "Elon Musk"))
	_, err = s.Start()
	require.NoError(t, err)

	for _, p := range players[:3] {
		require.NoError(t, s.SetReadiness(p.ID, true))
	}
	assert.Equal(t, domain.PhaseRoleAssignment, s.GetPhase())

	require.NoError(t, s.Leave(players[3].ID))
	assert.Equal(t, domain.PhaseVoting, s.GetPhase())
}

func TestDisconnectRemovesPlayerAfterLastConnection(t *testing.T) {
	hub := newTestHub(t, time.Hour)
	s, err := hub.CreateMatch()
	require.NoError(t, err)

	a, first := seat(t, s, "A")
	b, _ := seat(t, s, "B")

	second := newFakeConn("conn-A-2")
	require.NoError(t, s.Attach(a.ID, second))

	s.Disconnect(first.ID())
	assert.True(t, s.HasPlayer(a.ID), "a second connection keeps the player")

	s.Disconnect(second.ID())
	assert.False(t, s.HasPlayer(a.ID))

	info := s.Snapshot()
	require.Len(t, info.Players, 1)
	assert.Equal(t, b.ID, info.Players[0].ID)
	assert.True(t, info.Players[0].Host)

	// Unknown connections are ignored
	s.Disconnect("never-attached")
	assert.Len(t, s.Snapshot().Players, 1)
}

func TestReplacementConnectionRacingDisconnect(t *testing.T) {
	hub := newTestHub(t, time.Hour)

	for i := 0; i < 200; i++ {
		s, err := hub.CreateMatch()
		require.NoError(t, err)

		a, first := seat(t, s, "A")
		seat(t, s, "B")
		replacement := newFakeConn("conn-A-2")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Disconnect(first.ID())
		}()
		go func() {
			defer wg.Done()
			_ = s.Attach(a.ID, replacement)
		}()
		wg.Wait()

		// A bound connection always belongs to a rostered player
		conn, bound := hub.Connections().PlayerConnection(s.GetMatchCode(), a.ID)
		require.Equal(t, bound, s.HasPlayer(a.ID), "iteration %d", i)
		if bound {
			assert.Equal(t, replacement.ID(), conn.ID())
		}

		s.Close()
	}
}

func TestFullRosterEveryPlayerGetsRole(t *testing.T) {
	hub := newTestHub(t, time.Hour)
	hub.opts.Settings.MaxPlayers = domain.MaxPlayersCeiling
	s, err := hub.CreateMatch()
	require.NoError(t, err)

	players := make([]*domain.Player, domain.MaxPlayersCeiling)
	conns := make([]*fakeConn, len(players))
	for i := range players {
		players[i], conns[i] = seat(t, s, fmt.Sprintf("P%d", i))
	}

	_, err = s.Join("late")
	assert.ErrorIs(t, err, domain.ErrMatchFull)

	// Stall delivery so every event below piles up in the queue
	slow := newFakeConn("conn-P0-2")
	slow.gate = make(chan struct{})
	require.NoError(t, s.Attach(players[0].ID, slow))
	conns[0] = slow

	for i := 0; i < 300; i++ {
		require.NoError(t, s.Propose(players[i%len(players)].ID, fmt.Sprintf("Identity %d", i)))
	}
	_, err = s.Start()
	require.NoError(t, err)

	close(slow.gate)

	for i, conn := range conns {
		require.Eventually(t, func() bool {
			return len(conn.roleAssignments()) == 1
		}, waitFor, tick, "player %d", i)
	}
}

func TestAttachUnknownPlayer(t *testing.T) {
	hub := newTestHub(t, time.Hour)
	s, err := hub.CreateMatch()
	require.NoError(t, err)

	err = s.Attach("ghost", newFakeConn("c1"))
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
	assert.Equal(t, 0, hub.Connections().Count())
}

func TestAttachBroadcastsState(t *testing.T) {
	hub := newTestHub(t, time.Hour)
	s, err := hub.CreateMatch()
	require.NoError(t, err)

	_, connA := seat(t, s, "A")
	seat(t, s, "B")

	require.Eventually(t, func() bool {
		for _, m := range connA.messages() {
			if u, ok := m.(*domain.MatchStateUpdate); ok && len(u.Players) == 2 {
				return true
			}
		}
		return false
	}, waitFor, tick)
}

func TestRevealDelayDoesNotBlockOtherMatches(t *testing.T) {
	hub := newTestHub(t, time.Hour)

	slow, err := hub.CreateMatch()
	require.NoError(t, err)
	players := make([]*domain.Player, 3)
	for i := range players {
		players[i], _ = seat(t, slow, fmt.Sprintf("P%d", i))
	}
	startVoting(t, slow, players)

	done := make(chan struct{})
	go func() {
		for _, p := range players {
			_ = slow.CastVote(p.ID, players[0].ID)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("vote completion blocked on the reveal delay")
	}
	assert.Equal(t, domain.PhaseReveal, slow.GetPhase())

	other, err := hub.CreateMatch()
	require.NoError(t, err)
	_, err = other.Join("Z")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseReveal, slow.GetPhase())
}

func TestCloseDuringReveal(t *testing.T) {
	hub := newTestHub(t, 10*time.Millisecond)
	s, err := hub.CreateMatch()
	require.NoError(t, err)

	players := make([]*domain.Player, 3)
	conns := make([]*fakeConn, 3)
	for i := range players {
		players[i], conns[i] = seat(t, s, fmt.Sprintf("P%d", i))
	}
	startVoting(t, s, players)
	for _, p := range players {
		require.NoError(t, s.CastVote(p.ID, players[1].ID))
	}

	s.Close()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, domain.PhaseReveal, s.GetPhase())
	for _, conn := range conns {
		assert.True(t, conn.isClosed())
	}
}

func TestGameOverIsTerminal(t *testing.T) {
	hub := newTestHub(t, 5*time.Millisecond)
	s, err := hub.CreateMatch()
	require.NoError(t, err)

	players := make([]*domain.Player, 3)
	for i := range players {
		players[i], _ = seat(t, s, fmt.Sprintf("P%d", i))
	}
	startVoting(t, s, players)
	for _, p := range players {
		require.NoError(t, s.CastVote(p.ID, players[0].ID))
	}
	require.Eventually(t, func() bool { return s.GetPhase() == domain.PhaseGameOver }, waitFor, tick)

	assert.ErrorIs(t, s.SetReadiness(players[1].ID, true), domain.ErrWrongPhase)
	assert.ErrorIs(t, s.CastVote(players[1].ID, players[2].ID), domain.ErrWrongPhase)
	assert.ErrorIs(t, s.Propose(players[1].ID, "again"), domain.ErrWrongPhase)
	_, err = s.Start()
	assert.ErrorIs(t, err, domain.ErrWrongPhase)
	_, err = s.Join("late")
	assert.ErrorIs(t, err, domain.ErrWrongPhase)
	require.NoError(t, s.Leave(players[1].ID))
	assert.Equal(t, domain.PhaseGameOver, s.GetPhase())
}
