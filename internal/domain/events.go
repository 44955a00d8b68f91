package domain

// MessageType tags every outbound message
type MessageType string

const (
	MsgMatchStateUpdate MessageType = "match_state_update"
	MsgPhaseChange      MessageType = "phase_change"
	MsgRevealResult     MessageType = "reveal_result"
	MsgGameOver         MessageType = "game_over"
	MsgRoleAssignment   MessageType = "role_assignment"
)

// Event is an outbound message addressed to a whole match or to one player
type Event struct {
	MatchCode string
	PlayerID  string // If event is player-specific
	Message   interface{}
}

// NewEvent creates an event for every connection of a match
func NewEvent(matchCode string, message interface{}) *Event {
	return &Event{
		MatchCode: matchCode,
		Message:   message,
	}
}

// NewPlayerEvent creates an event for a single player
func NewPlayerEvent(matchCode, playerID string, message interface{}) *Event {
	return &Event{
		MatchCode: matchCode,
		PlayerID:  playerID,
		Message:   message,
	}
}

// IsPrivate returns true if the event targets one player
func (e *Event) IsPrivate() bool {
	return e.PlayerID != ""
}

// Message shapes

// MatchStateUpdate carries the full public match state
type MatchStateUpdate struct {
	Type MessageType `json:"type"`
	MatchInfo
}

// PhaseChange announces a new phase
type PhaseChange struct {
	Type  MessageType `json:"type"`
	Phase Phase       `json:"phase"`
}

// RevealResultMessage discloses the eliminated player
type RevealResultMessage struct {
	Type                 MessageType `json:"type"`
	EliminatedPlayer     string      `json:"eliminated_player"`
	EliminatedPlayerRole Role        `json:"eliminated_player_role"`
	EliminatedPlayerName string      `json:"eliminated_player_name"`
}

// GameOverMessage announces the winning side
type GameOverMessage struct {
	Type   MessageType `json:"type"`
	Winner Winner      `json:"winner"`
}

// RoleAssignmentMessage is sent privately to each player
type RoleAssignmentMessage struct {
	Type MessageType `json:"type"`
	Role string      `json:"role"`
}

func NewMatchStateUpdate(info *MatchInfo) *MatchStateUpdate {
	return &MatchStateUpdate{Type: MsgMatchStateUpdate, MatchInfo: *info}
}

func NewPhaseChange(phase Phase) *PhaseChange {
	return &PhaseChange{Type: MsgPhaseChange, Phase: phase}
}

func NewRevealResult(result *RevealResult) *RevealResultMessage {
	return &RevealResultMessage{
		Type:                 MsgRevealResult,
		EliminatedPlayer:     result.PlayerID,
		EliminatedPlayerRole: result.Role,
		EliminatedPlayerName: result.Name,
	}
}

func NewGameOver(winner Winner) *GameOverMessage {
	return &GameOverMessage{Type: MsgGameOver, Winner: winner}
}

func NewRoleAssignment(role string) *RoleAssignmentMessage {
	return &RoleAssignmentMessage{Type: MsgRoleAssignment, Role: role}
}
