package domain

import (
	"math/rand"
	"strings"
	"time"
)

const (
	// MinPlayersFloor is the smallest roster a match can start with
	MinPlayersFloor = 3

	// MaxPlayersCeiling bounds the roster so one start's private reveals
	// always fit in a session's event queue
	MaxPlayersCeiling = 32
)

// MatchSettings holds configurable match parameters
type MatchSettings struct {
	MinPlayers       int
	MaxPlayers       int
	DefaultCharacter string
}

// DefaultMatchSettings returns the default match settings
func DefaultMatchSettings() MatchSettings {
	return MatchSettings{
		MinPlayers:       MinPlayersFloor,
		MaxPlayers:       10,
		DefaultCharacter: DefaultSecretCharacter,
	}
}

// normalize clamps settings into the supported range
func (s MatchSettings) normalize() MatchSettings {
	if s.MinPlayers < MinPlayersFloor {
		s.MinPlayers = MinPlayersFloor
	}
	if s.MaxPlayers <= 0 || s.MaxPlayers > MaxPlayersCeiling {
		s.MaxPlayers = MaxPlayersCeiling
	}
	if s.MaxPlayers < s.MinPlayers {
		s.MaxPlayers = s.MinPlayers
	}
	if s.DefaultCharacter == "" {
		s.DefaultCharacter = DefaultSecretCharacter
	}
	return s
}

// Match represents one game session. It is not safe for concurrent use;
// callers serialize access per match.
type Match struct {
	Code            string
	Phase           Phase
	Round           int
	Players         map[string]*Player
	Order           []string          // join order
	Votes           map[string]string // voter -> target
	Propositions    map[string]string
	SecretCharacter string
	CanStart        bool
	Settings        MatchSettings
	CreatedAt       time.Time
}

// MatchInfo is the read-only projection broadcast to every client
type MatchInfo struct {
	Phase    Phase        `json:"phase"`
	Round    int          `json:"round"`
	CanStart bool         `json:"can_start"`
	Players  []PlayerInfo `json:"players"`
}

// NewMatch creates a new match in the lobby
func NewMatch(code string, settings MatchSettings) *Match {
	settings = settings.normalize()
	return &Match{
		Code:            code,
		Phase:           PhaseLobby,
		Round:           1,
		Players:         make(map[string]*Player),
		Order:           make([]string, 0),
		Votes:           make(map[string]string),
		Propositions:    make(map[string]string),
		SecretCharacter: settings.DefaultCharacter,
		Settings:        settings,
		CreatedAt:       time.Now(),
	}
}

// AddPlayer adds a player to the lobby. The first player into an empty
// roster becomes the host.
func (m *Match) AddPlayer(playerID, name string) (*Player, error) {
	if m.Phase != PhaseLobby {
		return nil, ErrWrongPhase
	}
	if len(m.Players) >= m.Settings.MaxPlayers {
		return nil, ErrMatchFull
	}

	player := NewPlayer(playerID, name)
	player.Host = len(m.Players) == 0

	m.Players[playerID] = player
	m.Order = append(m.Order, playerID)

	return player, nil
}

// RemovePlayer removes a player from the roster and hands the host flag to
// the earliest-joined remaining player if needed. It returns the new host id,
// or "" when the host did not change.
func (m *Match) RemovePlayer(playerID string) (string, error) {
	player, ok := m.Players[playerID]
	if !ok {
		return "", ErrPlayerNotFound
	}

	delete(m.Players, playerID)
	for i, pid := range m.Order {
		if pid == playerID {
			m.Order = append(m.Order[:i], m.Order[i+1:]...)
			break
		}
	}

	// Ballots from or against the departed player are void
	delete(m.Votes, playerID)
	for voter, target := range m.Votes {
		if target == playerID {
			delete(m.Votes, voter)
		}
	}

	if !player.Host || len(m.Order) == 0 {
		return "", nil
	}

	newHost := m.Order[0]
	for pid, p := range m.Players {
		p.Host = pid == newHost
	}
	return newHost, nil
}

// GetPlayer returns a player by ID
func (m *Match) GetPlayer(playerID string) (*Player, error) {
	player, ok := m.Players[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	return player, nil
}

// OrderedPlayers returns the roster in join order
func (m *Match) OrderedPlayers() []*Player {
	players := make([]*Player, 0, len(m.Order))
	for _, pid := range m.Order {
		players = append(players, m.Players[pid])
	}
	return players
}

// AliveIDs returns the ids of alive players in join order
func (m *Match) AliveIDs() []string {
	ids := make([]string, 0, len(m.Order))
	for _, pid := range m.Order {
		if m.Players[pid].Alive {
			ids = append(ids, pid)
		}
	}
	return ids
}

// AliveCounts returns the number of alive impostors and alive normal players
func (m *Match) AliveCounts() (impostors, normals int) {
	for _, p := range m.Players {
		if !p.Alive {
			continue
		}
		if p.Role.IsImpostor() {
			impostors++
		} else {
			normals++
		}
	}
	return impostors, normals
}

// Snapshot returns the current match state for broadcasting
func (m *Match) Snapshot() *MatchInfo {
	players := make([]PlayerInfo, 0, len(m.Order))
	for _, p := range m.OrderedPlayers() {
		players = append(players, p.ToInfo())
	}

	return &MatchInfo{
		Phase:    m.Phase,
		Round:    m.Round,
		CanStart: m.CanStart,
		Players:  players,
	}
}

// Propose records a player's secret identity proposition. It returns true
// when the text is usable, which also unlocks starting the match.
func (m *Match) Propose(playerID, text string) (bool, error) {
	if m.Phase != PhaseLobby {
		return false, ErrWrongPhase
	}
	if _, err := m.GetPlayer(playerID); err != nil {
		return false, err
	}

	m.Propositions[playerID] = text
	if strings.TrimSpace(text) == "" {
		return false, nil
	}

	m.CanStart = true
	return true, nil
}

// AssignRoles picks the impostor and the shared secret identity and moves
// the match to role assignment. It returns the impostor's id.
func (m *Match) AssignRoles(rng *rand.Rand) (string, error) {
	if m.Phase != PhaseLobby {
		return "", ErrWrongPhase
	}
	if len(m.Order) < m.Settings.MinPlayers {
		return "", ErrNotEnoughPlayers
	}
	if !m.CanStart {
		return "", ErrNoProposition
	}

	impostorID := m.Order[rng.Intn(len(m.Order))]
	m.SecretCharacter = ChooseSecretCharacter(rng, m.Order, m.Propositions, impostorID, m.Settings.DefaultCharacter)

	for pid, player := range m.Players {
		player.ReadyToVote = false
		if pid == impostorID {
			player.Role = RoleImpostor
		} else {
			player.Role = RoleNormal
		}
	}

	if err := m.transition(PhaseRoleAssignment); err != nil {
		return "", err
	}
	return impostorID, nil
}

// RoleRevealFor returns the private role text for a player: "impostor" for
// the impostor and the shared secret identity for everyone else.
func (m *Match) RoleRevealFor(player *Player) string {
	if player.Role.IsImpostor() {
		return string(RoleImpostor)
	}
	return m.SecretCharacter
}

// SetReadiness records a player's readiness to vote. It returns true when
// the update moved the match to voting.
func (m *Match) SetReadiness(playerID string, ready bool) (bool, error) {
	if !m.Phase.AcceptsReadiness() {
		return false, ErrWrongPhase
	}

	player, err := m.GetPlayer(playerID)
	if err != nil {
		return false, err
	}
	if !player.Alive {
		return false, ErrPlayerEliminated
	}

	player.ReadyToVote = ready
	return m.StartVotingIfReady(), nil
}

// StartVotingIfReady moves the match to voting when every alive player is
// ready. Readiness is cleared on the way.
func (m *Match) StartVotingIfReady() bool {
	if !m.Phase.AcceptsReadiness() {
		return false
	}

	alive := 0
	for _, p := range m.Players {
		if !p.Alive {
			continue
		}
		if !p.ReadyToVote {
			return false
		}
		alive++
	}
	if alive == 0 {
		return false
	}

	for _, p := range m.Players {
		p.ReadyToVote = false
	}
	return m.transition(PhaseVoting) == nil
}

// CastVote records a vote for the current voting round
func (m *Match) CastVote(voterID, targetID string) error {
	if m.Phase != PhaseVoting {
		return ErrWrongPhase
	}

	voter, err := m.GetPlayer(voterID)
	if err != nil {
		return err
	}
	if !voter.Alive {
		return ErrPlayerEliminated
	}
	if _, voted := m.Votes[voterID]; voted {
		return ErrAlreadyVoted
	}

	target, ok := m.Players[targetID]
	if !ok || !target.Alive {
		return ErrInvalidTarget
	}

	m.Votes[voterID] = targetID
	return nil
}

// VotingComplete reports whether every alive player has a recorded vote
func (m *Match) VotingComplete() bool {
	alive := m.AliveIDs()
	if len(alive) == 0 {
		return false
	}
	for _, pid := range alive {
		if _, ok := m.Votes[pid]; !ok {
			return false
		}
	}
	return true
}

// Eliminate tallies the completed vote, removes the most voted player (ties
// broken with rng) and moves the match to reveal.
func (m *Match) Eliminate(rng *rand.Rand) (*RevealResult, error) {
	if m.Phase != PhaseVoting {
		return nil, ErrWrongPhase
	}
	if !m.VotingComplete() {
		return nil, ErrVotingIncomplete
	}

	leaders := TallyVotes(m.Votes).Leaders(m.Order)
	eliminatedID := BreakTie(rng, leaders)
	player, err := m.GetPlayer(eliminatedID)
	if err != nil {
		return nil, err
	}

	player.Eliminate()
	m.Votes = make(map[string]string)

	if err := m.transition(PhaseReveal); err != nil {
		return nil, err
	}

	return &RevealResult{
		PlayerID: player.ID,
		Name:     player.Name,
		Role:     player.Role,
	}, nil
}

// FinishReveal evaluates the win condition once the reveal is over. It either
// ends the match or starts the next round.
func (m *Match) FinishReveal() (Winner, bool, error) {
	if m.Phase != PhaseReveal {
		return "", false, ErrWrongPhase
	}

	winner, over := EvaluateWinner(m.AliveCounts())
	if over {
		return winner, true, m.transition(PhaseGameOver)
	}

	m.Round++
	return "", false, m.transition(PhaseRound)
}

func (m *Match) transition(target Phase) error {
	if !m.Phase.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	m.Phase = target
	return nil
}
