package domain

// Player represents a player in a match
type Player struct {
	ID          string
	Name        string
	Alive       bool
	Host        bool
	ReadyToVote bool
	Role        Role
}

// NewPlayer creates a new alive player with no role
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:    id,
		Name:  name,
		Alive: true,
		Role:  RoleUnassigned,
	}
}

// Eliminate marks the player as out of the match
func (p *Player) Eliminate() {
	p.Alive = false
	p.ReadyToVote = false
}

// PlayerInfo is a safe view of player data (hides role from other players)
type PlayerInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Host        bool   `json:"host"`
	ReadyToVote bool   `json:"ready_to_vote"`
	Alive       bool   `json:"alive"`
}

// ToInfo converts a Player to PlayerInfo (without role)
func (p *Player) ToInfo() PlayerInfo {
	return PlayerInfo{
		ID:          p.ID,
		Name:        p.Name,
		Host:        p.Host,
		ReadyToVote: p.ReadyToVote,
		Alive:       p.Alive,
	}
}
