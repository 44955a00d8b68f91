package domain

// Phase represents the current phase of a match
type Phase string

const (
	PhaseLobby          Phase = "lobby"           // Waiting for players and propositions
	PhaseRoleAssignment Phase = "role_assignment" // Roles handed out, first discussion
	PhaseRound          Phase = "round"           // Discussion between votes
	PhaseVoting         Phase = "voting"          // Every alive player casts one vote
	PhaseReveal         Phase = "reveal"          // Eliminated player is shown
	PhaseGameOver       Phase = "game_over"       // Terminal
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

var validTransitions = map[Phase][]Phase{
	PhaseLobby:          {PhaseRoleAssignment},
	PhaseRoleAssignment: {PhaseVoting},
	PhaseRound:          {PhaseVoting},
	PhaseVoting:         {PhaseReveal},
	PhaseReveal:         {PhaseRound, PhaseGameOver},
}

// CanTransitionTo checks if a transition from current phase to target phase is valid
func (p Phase) CanTransitionTo(target Phase) bool {
	allowed, ok := validTransitions[p]
	if !ok {
		return false
	}

	for _, phase := range allowed {
		if phase == target {
			return true
		}
	}
	return false
}

// AcceptsReadiness reports whether players may toggle voting readiness
func (p Phase) AcceptsReadiness() bool {
	return p == PhaseRoleAssignment || p == PhaseRound
}

// IsTerminal returns true once no further progress is possible
func (p Phase) IsTerminal() bool {
	return p == PhaseGameOver
}
