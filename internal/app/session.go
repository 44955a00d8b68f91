package app

import (
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"suspect/internal/domain"
)

// DefaultRevealDelay is how long the eliminated player is shown before the
// win condition is evaluated
const DefaultRevealDelay = 5 * time.Second

// MatchSession wraps a match with concurrency control and event delivery.
// Every mutation holds mu, so operations on one match are serialized while
// different matches proceed in parallel.
type MatchSession struct {
	match       *domain.Match
	mu          sync.Mutex
	rng         *rand.Rand
	conns       *ConnectionRegistry
	broadcaster *Broadcaster
	logger      *slog.Logger

	revealDelay time.Duration
	revealTimer *time.Timer

	// Events queued under mu are delivered in order. The queue is unbounded
	// so no private reveal is ever dropped.
	queueMu   sync.Mutex
	pending   []*domain.Event
	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewMatchSession creates a new match session and starts its event loop
func NewMatchSession(match *domain.Match, rng *rand.Rand, conns *ConnectionRegistry, broadcaster *Broadcaster, revealDelay time.Duration, logger *slog.Logger) *MatchSession {
	session := &MatchSession{
		match:       match,
		rng:         rng,
		conns:       conns,
		broadcaster: broadcaster,
		logger:      logger.With("matchCode", match.Code),
		revealDelay: revealDelay,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}

	go session.eventLoop()

	return session
}

// GetMatchCode returns the match code
func (s *MatchSession) GetMatchCode() string {
	return s.match.Code
}

// GetCreatedAt returns when the match was created
func (s *MatchSession) GetCreatedAt() time.Time {
	return s.match.CreatedAt
}

// GetPlayerCount returns the number of rostered players
func (s *MatchSession) GetPlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.match.Players)
}

// GetPhase returns the current match phase
func (s *MatchSession) GetPhase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.match.Phase
}

// HasPlayer reports whether a player is in the roster
func (s *MatchSession) HasPlayer(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.match.Players[playerID]
	return ok
}

// Snapshot returns the public match state
func (s *MatchSession) Snapshot() *domain.MatchInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.match.Snapshot()
}

// Join adds a new player to the lobby
func (s *MatchSession) Join(name string) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, err := s.match.AddPlayer(uuid.New().String(), name)
	if err != nil {
		return nil, err
	}

	s.logger.Info("player joined", "playerID", player.ID, "host", player.Host)
	s.queueState()

	// Copy so callers never read the roster entry outside the lock
	joined := *player
	return &joined, nil
}

// Leave removes a player from the roster, reassigning the host if needed
func (s *MatchSession) Leave(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaveLocked(playerID)
}

// leaveLocked removes a player and re-checks whatever the current phase was
// waiting on (caller must hold lock)
func (s *MatchSession) leaveLocked(playerID string) error {
	newHost, err := s.match.RemovePlayer(playerID)
	if err != nil {
		return err
	}

	s.logger.Info("player left", "playerID", playerID)
	if newHost != "" {
		s.logger.Info("host reassigned", "playerID", newHost)
	}
	s.queueState()

	// The departure may have been the last thing a phase was waiting on
	switch {
	case s.match.Phase == domain.PhaseVoting && s.match.VotingComplete():
		s.resolveVotingLocked()
	case s.match.StartVotingIfReady():
		s.queuePhase(domain.PhaseVoting)
	}

	return nil
}

// Attach registers a live connection for a rostered player
func (s *MatchSession) Attach(playerID string, conn Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.match.GetPlayer(playerID); err != nil {
		return err
	}

	s.conns.Attach(s.match.Code, playerID, conn)
	s.logger.Debug("connection attached", "playerID", playerID, "connID", conn.ID())
	s.queueState()

	return nil
}

// Disconnect forgets a connection. The player leaves the roster once their
// last connection is gone. Detach and removal happen under one lock so a
// replacement connection attaches either before (player stays) or after
// (attach is refused).
func (s *MatchSession) Disconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, last, ok := s.conns.Detach(connID)
	if !ok || !last || b.MatchCode != s.match.Code {
		return
	}

	if err := s.leaveLocked(b.PlayerID); err != nil && !errors.Is(err, domain.ErrPlayerNotFound) {
		s.logger.Warn("failed to remove player", "playerID", b.PlayerID, "error", err)
	}
}

// Propose records a player's secret identity proposition
func (s *MatchSession) Propose(playerID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	usable, err := s.match.Propose(playerID, text)
	if err != nil {
		return err
	}

	if usable {
		s.queueState()
	}
	return nil
}

// Start assigns roles and privately reveals them to every player
func (s *MatchSession) Start() (domain.Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	impostorID, err := s.match.AssignRoles(s.rng)
	if err != nil {
		return s.match.Phase, err
	}

	s.logger.Info("match started",
		"players", len(s.match.Players),
		"impostorID", impostorID,
	)

	s.queuePhase(domain.PhaseRoleAssignment)

	for _, player := range s.match.OrderedPlayers() {
		reveal := domain.NewRoleAssignment(s.match.RoleRevealFor(player))
		s.queueEvent(domain.NewPlayerEvent(s.match.Code, player.ID, reveal))
	}

	return s.match.Phase, nil
}

// SetReadiness toggles a player's readiness to vote
func (s *MatchSession) SetReadiness(playerID string, ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	votingStarted, err := s.match.SetReadiness(playerID, ready)
	if err != nil {
		return err
	}

	s.queueState()
	if votingStarted {
		s.logger.Info("voting started", "round", s.match.Round)
		s.queuePhase(domain.PhaseVoting)
	}
	return nil
}

// CastVote records a vote and resolves the round once everyone has voted
func (s *MatchSession) CastVote(voterID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.match.CastVote(voterID, targetID); err != nil {
		return err
	}

	if s.match.VotingComplete() {
		s.resolveVotingLocked()
	}
	return nil
}

// resolveVotingLocked eliminates the most voted player and schedules the
// end of the reveal (caller must hold lock)
func (s *MatchSession) resolveVotingLocked() {
	result, err := s.match.Eliminate(s.rng)
	if err != nil {
		s.logger.Error("failed to resolve vote", "error", err)
		return
	}

	s.logger.Info("player eliminated",
		"playerID", result.PlayerID,
		"role", result.Role,
		"round", s.match.Round,
	)

	s.queueEvent(domain.NewEvent(s.match.Code, domain.NewRevealResult(result)))
	s.queuePhase(domain.PhaseReveal)

	if s.revealTimer != nil {
		s.revealTimer.Stop()
	}
	s.revealTimer = time.AfterFunc(s.revealDelay, s.finishReveal)
}

// finishReveal ends the reveal phase with either a winner or a new round
func (s *MatchSession) finishReveal() {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return
	default:
	}

	winner, over, err := s.match.FinishReveal()
	if err != nil {
		s.logger.Debug("reveal already finished", "phase", s.match.Phase, "error", err)
		return
	}

	if over {
		s.logger.Info("match over", "winner", winner)
		s.queueEvent(domain.NewEvent(s.match.Code, domain.NewGameOver(winner)))
		s.queuePhase(domain.PhaseGameOver)
		return
	}

	s.queuePhase(domain.PhaseRound)
	s.queueState()
}

// queueState queues a full state broadcast (caller must hold lock)
func (s *MatchSession) queueState() {
	s.queueEvent(domain.NewEvent(s.match.Code, domain.NewMatchStateUpdate(s.match.Snapshot())))
}

// queuePhase queues a phase change broadcast (caller must hold lock)
func (s *MatchSession) queuePhase(phase domain.Phase) {
	s.queueEvent(domain.NewEvent(s.match.Code, domain.NewPhaseChange(phase)))
}

// queueEvent adds an event to the broadcast queue
func (s *MatchSession) queueEvent(event *domain.Event) {
	select {
	case <-s.done:
		return
	default:
	}

	s.queueMu.Lock()
	s.pending = append(s.pending, event)
	s.queueMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// eventLoop delivers queued events in order
func (s *MatchSession) eventLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.queueMu.Lock()
		batch := s.pending
		s.pending = nil
		s.queueMu.Unlock()

		for _, event := range batch {
			select {
			case <-s.done:
				return
			default:
			}
			s.broadcaster.Deliver(event)
		}
	}
}

// Close shuts down the session, stopping the reveal timer and closing every
// connection of the match
func (s *MatchSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		if s.revealTimer != nil {
			s.revealTimer.Stop()
		}
		s.mu.Unlock()

		for _, conn := range s.conns.DropMatch(s.match.Code) {
			conn.Close()
		}
	})
}
